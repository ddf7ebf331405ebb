package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/voxmarket/backend/internal/middleware"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   middleware.IDTokenVerifier
	jwtSecret      string
	jwtTTL         time.Duration
	adminEmails    map[string]bool
	logger         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables Firebase login.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth middleware.IDTokenVerifier, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		jwtSecret:      jwtSecret,
		jwtTTL:         jwtTTL,
		logger:         logger,
	}
}

// SetAdminEmails makes accounts registered with these emails admins
func (h *AuthHandler) SetAdminEmails(emails []string) {
	h.adminEmails = make(map[string]bool, len(emails))
	for _, e := range emails {
		h.adminEmails[strings.ToLower(strings.TrimSpace(e))] = true
	}
}

func (h *AuthHandler) roleFor(email, requested string) string {
	if h.adminEmails[strings.ToLower(email)] {
		return models.RoleAdmin
	}
	return requested
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	// Check if user with this email already exists
	if _, err := h.userRepository.GetUserByEmail(req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     h.roleFor(req.Email, req.Role),
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("user signed up", zap.String("user", user.PublicID()), zap.String("role", user.Role))

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}
	return success(c, http.StatusCreated, echo.Map{"token": token, "user": user.ToCompact()})
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return success(c, http.StatusOK, echo.Map{"token": token, "user": user.ToCompact()})
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	firebaseUID := token.UID
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(firebaseUID)
	switch {
	case err == nil:
		user.Email = email
		if name != "" {
			user.Name = name
		}
		if err := h.userRepository.UpdateUser(user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user details")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = h.userRepository.GetUserByEmail(email)
		switch {
		case err == nil:
			// Existing local account, link it to the Firebase UID
			user.FirebaseUID = &firebaseUID
			if err := h.userRepository.UpdateUser(user); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user with Firebase UID")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			role := req.Role
			if role == "" {
				role = models.RoleClient
			}
			user = &models.User{Name: name, Email: email, Role: h.roleFor(email, role), FirebaseUID: &firebaseUID}
			if err := h.userRepository.CreateUser(user); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
			}
			h.logger.Info("user created from firebase", zap.String("user", user.PublicID()), zap.String("role", role))
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
	}

	localJWT, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	return success(c, http.StatusOK, echo.Map{"token": localJWT, "user": user.ToCompact()})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.PublicID(),
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
}
