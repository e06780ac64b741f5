package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/lib/pq"
)

// CreateUser inserts a new user. Email is stored lowercased.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	query := `
		INSERT INTO users (email, password_hash, role, payment_customer_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, user, query,
		user.Email, user.PasswordHash, user.Role, user.PaymentCustomerID, user.Metadata)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return models.ErrEmailTaken
	}
	return err
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE email = LOWER($1)", email)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetResetToken stores a password reset token with its expiry
func (s *Store) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET reset_token = $1, reset_token_expires_at = $2, updated_at = NOW() WHERE id = $3",
		token, expires, userID)
	return err
}

// GetUserByResetToken retrieves a user holding an unexpired reset token
func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE reset_token = $1 AND reset_token_expires_at > NOW()", token)
	if err == sql.ErrNoRows {
		return nil, models.ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword replaces the password hash and clears any reset token
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, reset_token = NULL,
		 reset_token_expires_at = NULL, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID)
	return err
}

// SetPaymentCustomerID attaches a provider customer id to a user
func (s *Store) SetPaymentCustomerID(ctx context.Context, userID int64, customerID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET payment_customer_id = $1, updated_at = NOW() WHERE id = $2",
		customerID, userID)
	return err
}
