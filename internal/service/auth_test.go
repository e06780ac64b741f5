package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront/config"
	"storefront/internal/identity"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users  map[string]*models.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	email := strings.ToLower(user.Email)
	if _, ok := f.users[email]; ok {
		return models.ErrEmailTaken
	}
	f.nextID++
	user.ID = f.nextID
	user.Email = email
	f.users[email] = user
	return nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	return nil, models.ErrResetTokenInvalid
}

func (f *fakeUserStore) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	return nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return nil
}

type fakeProvisioner struct {
	calls int
}

func (f *fakeProvisioner) CreateCustomer(ctx context.Context, email string) (string, error) {
	f.calls++
	return "cus_test_1", nil
}

type fakeVerifier struct {
	profile *identity.Profile
	err     error
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*identity.Profile, error) {
	return f.profile, f.err
}

func newTestAuthService() *AuthService {
	return &AuthService{
		cfg: config.AuthConfig{
			JWTSecret:          "test-secret",
			SessionTTLHours:    24,
			RememberedTTLHours: 720,
		},
		logger: util.GetLogger(),
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestAuthService()

	token, err := s.IssueToken(42, models.RoleAdmin, false)
	require.NoError(t, err)

	claims, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.False(t, claims.Remember)
}

func TestTokenExpiryFollowsRememberMe(t *testing.T) {
	s := newTestAuthService()

	short, err := s.IssueToken(1, models.RoleUser, false)
	require.NoError(t, err)
	long, err := s.IssueToken(1, models.RoleUser, true)
	require.NoError(t, err)

	shortClaims, err := s.ParseToken(short)
	require.NoError(t, err)
	longClaims, err := s.ParseToken(long)
	require.NoError(t, err)

	assert.True(t, longClaims.Remember)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), shortClaims.ExpiresAt.Time, 2*time.Hour)
	assert.True(t, longClaims.ExpiresAt.Time.After(time.Now().Add(26*time.Hour)),
		"remembered session must outlive a plain one")
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	s := newTestAuthService()

	_, err := s.ParseToken("not-a-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	other := &AuthService{cfg: config.AuthConfig{JWTSecret: "different-secret", SessionTTLHours: 1}}
	token, err := other.IssueToken(1, models.RoleUser, false)
	require.NoError(t, err)

	_, err = s.ParseToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignupRejectsPasswordMismatchBeforeAnyWrite(t *testing.T) {
	// Store and payment client are nil: a mismatch must fail before either
	// is touched.
	s := newTestAuthService()

	_, err := s.Signup(context.Background(), &SignupRequest{
		Email:           "a@example.com",
		Password:        "password-one",
		ConfirmPassword: "password-two",
	})
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
	assert.Equal(t, "Passwords do not Match", err.Error())
}

func TestResetPasswordRejectsMismatch(t *testing.T) {
	s := newTestAuthService()

	err := s.ResetPassword(context.Background(), "token", "one", "two")
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
}

func TestSignupProvisionsPaymentCustomer(t *testing.T) {
	store := newFakeUserStore()
	payments := &fakeProvisioner{}
	s := newTestAuthService()
	s.store = store
	s.payments = payments

	resp, err := s.Signup(context.Background(), &SignupRequest{
		Email:           "New.User@Example.com",
		Password:        "long-enough-pw",
		ConfirmPassword: "long-enough-pw",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	require.True(t, resp.User.PaymentCustomerID.Valid)
	assert.Equal(t, "cus_test_1", resp.User.PaymentCustomerID.String)
	assert.NotEmpty(t, resp.Token)
}

func TestSignupDuplicateEmailLeavesNoProviderCustomer(t *testing.T) {
	store := newFakeUserStore()
	require.NoError(t, store.CreateUser(context.Background(),
		&models.User{Email: "taken@example.com", PasswordHash: "x", Role: models.RoleUser}))

	payments := &fakeProvisioner{}
	s := newTestAuthService()
	s.store = store
	s.payments = payments

	_, err := s.Signup(context.Background(), &SignupRequest{
		Email:           "Taken@Example.com",
		Password:        "long-enough-pw",
		ConfirmPassword: "long-enough-pw",
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	assert.Zero(t, payments.calls, "duplicate signup must not provision a payment customer")
}

func TestOAuthLoginRejectsInvalidToken(t *testing.T) {
	s := newTestAuthService()
	s.idp = &fakeVerifier{err: errors.New("token audience mismatch")}

	_, err := s.OAuthLogin(context.Background(), "bad-token")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestOAuthLoginProvisionsFirstSignIn(t *testing.T) {
	store := newFakeUserStore()
	payments := &fakeProvisioner{}
	s := newTestAuthService()
	s.store = store
	s.payments = payments
	s.idp = &fakeVerifier{profile: &identity.Profile{Subject: "sub-1", Email: "oauth@example.com"}}

	resp, err := s.OAuthLogin(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, 1, payments.calls)
	assert.Equal(t, "oauth@example.com", resp.User.Email)

	// Second sign-in reuses the provisioned user.
	again, err := s.OAuthLogin(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)
	assert.Equal(t, 1, payments.calls)
}
