package storage

// Quota bounds what a Store accepts. Zero disables a bound.
type Quota struct {
	MaxItemBytes  int64
	MaxTotalBytes int64
}

// DefaultQuota mirrors the ceilings observed in browser storage.
func DefaultQuota() Quota {
	return Quota{
		MaxItemBytes:  1536 * 1024,
		MaxTotalBytes: 4 * 1024 * 1024,
	}
}

// CleanupPolicy tells a Store what to evict when a write does not fit.
type CleanupPolicy struct {
	// Caps is the number of most recent entries kept per collection by AggressiveCleanup.
	Caps map[string]int
	// AllowList keys are never deleted by EmergencyCleanup.
	AllowList []string
	// CoreCollections are reset to empty arrays by EmergencyCleanup.
	CoreCollections []string
}

func DefaultCleanupPolicy() CleanupPolicy {
	return CleanupPolicy{
		Caps: map[string]int{
			KeyMessages:            50,
			KeyConversations:       20,
			KeyTalentNotifications: 10,
			KeyPendingMessages:     20,
			KeyAdminActions:        100,
		},
		AllowList: []string{KeyUserID, KeyAuthToken, KeyUserRole, KeyUserEmail, KeyUserName},
		CoreCollections: []string{
			KeyEscrowPayments,
			KeyMessages,
			KeyConversations,
			KeyPendingMessages,
			KeyTalentNotifications,
			KeyGeneralFavorites,
			KeyProjectShortlists,
			KeyTalentProfiles,
			KeyAdminUsers,
			KeyAdminActions,
		},
	}
}

func (p CleanupPolicy) allowed(key string) bool {
	for _, k := range p.AllowList {
		if k == key {
			return true
		}
	}
	return false
}
