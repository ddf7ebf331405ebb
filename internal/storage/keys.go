package storage

// Collection keys of the persisted layout.
const (
	KeyEscrowPayments      = "escrow_payments"
	KeyMessages            = "messages"
	KeyConversations       = "conversations"
	KeyPendingMessages     = "pendingMessages"
	KeyTalentNotifications = "talentNotifications"
	KeyGeneralFavorites    = "generalFavorites"
	KeyProjectShortlists   = "projectShortlists"
	KeyTalentProfiles      = "talent_profiles"
	KeyAdminUsers          = "admin_users"
	KeyAdminActions        = "admin_actions"
)

// Identity keys that survive an emergency cleanup.
const (
	KeyUserID    = "userId"
	KeyAuthToken = "authToken"
	KeyUserRole  = "userRole"
	KeyUserEmail = "userEmail"
	KeyUserName  = "userName"
)
