package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/identity"
	"storefront/internal/mail"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// userStore is the slice of the store the auth service touches.
// *store.Store satisfies it.
type userStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// customerProvisioner creates payment customers. *payment.Client
// satisfies it.
type customerProvisioner interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
}

// idTokenVerifier validates OAuth ID tokens. *identity.Client satisfies it.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*identity.Profile, error)
}

// AuthService handles signup, login, OAuth provisioning and password reset
type AuthService struct {
	store    userStore
	payments customerProvisioner
	idp      idTokenVerifier
	mailer   mail.Mailer
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	store userStore,
	payments customerProvisioner,
	idp idTokenVerifier,
	mailer mail.Mailer,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		store:    store,
		payments: payments,
		idp:      idp,
		mailer:   mailer,
		cfg:      cfg,
		logger:   util.GetLogger(),
	}
}

// SessionClaims is the JWT payload carried by every session token
type SessionClaims struct {
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
	Remember bool   `json:"remember"`
	jwt.RegisteredClaims
}

// SignupRequest carries a credential signup
type SignupRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// LoginRequest carries a credential login
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// SessionResponse is returned by every successful auth operation
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup registers a credential user and provisions a payment customer.
// A password mismatch persists nothing.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*SessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Signup")
	defer span.End()

	if req.Password != req.ConfirmPassword {
		return nil, models.ErrPasswordMismatch
	}

	// Taken emails are rejected before the provider call so a duplicate
	// signup never leaves an orphaned payment customer. The unique index
	// behind CreateUser still catches the concurrent-signup race; only
	// that narrow window can orphan a customer.
	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, models.ErrEmailTaken
	} else if err != models.ErrNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	customerID, err := s.payments.CreateCustomer(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to provision payment customer: %w", err)
	}

	user := &models.User{
		Email:             req.Email,
		PasswordHash:      string(hash),
		Role:              models.RoleUser,
		PaymentCustomerID: sql.NullString{String: customerID, Valid: true},
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User signed up", zap.Int64("user_id", user.ID))
	return s.session(user, false)
}

// Login verifies credentials. Email comparison is case-insensitive.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*SessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err == models.ErrNotFound {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, models.ErrInvalidCredentials
	}

	return s.session(user, req.RememberMe)
}

// OAuthLogin verifies an ID token with the identity provider and
// provisions a local user on first sign-in: random unguessable password,
// payment customer attached.
func (s *AuthService) OAuthLogin(ctx context.Context, idToken string) (*SessionResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.OAuthLogin")
	defer span.End()

	profile, err := s.idp.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	user, err := s.store.GetUserByEmail(ctx, profile.Email)
	if err == models.ErrNotFound {
		randomPassword := uuid.New().String() + uuid.New().String()
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(randomPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", hashErr)
		}

		customerID, provErr := s.payments.CreateCustomer(ctx, strings.ToLower(profile.Email))
		if provErr != nil {
			return nil, fmt.Errorf("failed to provision payment customer: %w", provErr)
		}

		user = &models.User{
			Email:             profile.Email,
			PasswordHash:      string(hash),
			Role:              models.RoleUser,
			PaymentCustomerID: sql.NullString{String: customerID, Valid: true},
		}
		if createErr := s.store.CreateUser(ctx, user); createErr != nil {
			return nil, createErr
		}
		s.logger.Info("OAuth user provisioned", zap.Int64("user_id", user.ID))
	} else if err != nil {
		return nil, err
	}

	return s.session(user, true)
}

// ForgotPassword issues a reset token. Unknown emails are answered the
// same as known ones so accounts cannot be enumerated.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err == models.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.New().String()
	if err := s.store.SetResetToken(ctx, user.ID, token, time.Now().Add(time.Hour)); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error("Failed to send reset mail", zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	if password != confirmPassword {
		return models.ErrPasswordMismatch
	}

	user, err := s.store.GetUserByResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.store.UpdatePassword(ctx, user.ID, string(hash))
}

func (s *AuthService) session(user *models.User, remember bool) (*SessionResponse, error) {
	token, err := s.IssueToken(user.ID, user.Role, remember)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Token: token, User: user}, nil
}

// IssueToken signs a session JWT. Remember-me sessions live 30 days by
// default, plain sessions one day.
func (s *AuthService) IssueToken(userID int64, role string, remember bool) (string, error) {
	ttl := time.Duration(s.cfg.SessionTTLHours) * time.Hour
	if remember {
		ttl = time.Duration(s.cfg.RememberedTTLHours) * time.Hour
	}

	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Role:     role,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// ParseToken validates a session JWT and returns its claims
func (s *AuthService) ParseToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, models.ErrUnauthorized
	}
	return claims, nil
}
