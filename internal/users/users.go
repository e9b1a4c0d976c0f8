// Package users manages accounts, password login and the one-time-code
// login path with its opaque sessions.
package users

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AviralYO/oops-ecommerce-sub000/internal/auth"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrSessionNotFound    = errors.New("session not found or expired")
)

const (
	otpValidity     = 5 * time.Minute
	sessionValidity = 30 * 24 * time.Hour
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// InsertUser creates a password-based account.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}
	role := nu.Role
	if role == "" {
		role = auth.RoleUser
	}

	u := User{
		ID:    uuid.NewString(),
		Name:  nu.Name,
		Email: nu.Email,
		Role:  role,
	}
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = c.db.QueryRowContext(ctx, query, u.ID, u.Name, u.Email, string(hash), u.Role).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks an email/password pair.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := c.getUser(ctx, `WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if u.passwordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetUserByID fetches a user by id.
func (c *Conf) GetUserByID(ctx context.Context, id string) (User, error) {
	return c.getUser(ctx, `WHERE id = $1`, id)
}

func (c *Conf) getUser(ctx context.Context, where string, arg any) (User, error) {
	query := `
		SELECT id, name, email, COALESCE(phone, ''), COALESCE(password_hash, ''), role, created_at, updated_at
		FROM users
	` + where
	var u User
	err := c.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.passwordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// RequestOTP stores a fresh one-time code for the phone number and returns
// it for the caller to dispatch over SMS.
func (c *Conf) RequestOTP(ctx context.Context, phone string) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	query := `
		INSERT INTO otp_codes (phone, code, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (phone) DO UPDATE SET code = $2, expires_at = $3, created_at = NOW()
	`
	_, err = c.db.ExecContext(ctx, query, phone, code, time.Now().Add(otpValidity))
	if err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

// VerifyOTP consumes a one-time code, creating the account on first login,
// and issues an opaque session id.
func (c *Conf) VerifyOTP(ctx context.Context, phone, code string) (User, string, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE phone = $1 AND code = $2 AND expires_at > NOW()`, phone, code)
	if err != nil {
		return User{}, "", fmt.Errorf("failed to check otp: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return User{}, "", fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return User{}, "", ErrInvalidOTP
	}

	u, err := c.getUser(ctx, `WHERE phone = $1`, phone)
	if errors.Is(err, ErrNotFound) {
		u, err = c.insertPhoneUser(ctx, phone)
	}
	if err != nil {
		return User{}, "", err
	}

	sessionID := uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, NOW(), $3)`,
		sessionID, u.ID, time.Now().Add(sessionValidity))
	if err != nil {
		return User{}, "", fmt.Errorf("failed to create session: %w", err)
	}
	return u, sessionID, nil
}

// insertPhoneUser creates a phone-only account. The synthetic email keeps
// the unique email column satisfied for rows created by this path.
func (c *Conf) insertPhoneUser(ctx context.Context, phone string) (User, error) {
	u := User{
		ID:    uuid.NewString(),
		Name:  "Customer " + phone,
		Email: phone + "@temp.marketplace.local",
		Phone: phone,
		Role:  auth.RoleUser,
	}
	query := `
		INSERT INTO users (id, name, email, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, query, u.ID, u.Name, u.Email, u.Phone, u.Role).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert phone user: %w", err)
	}
	return u, nil
}

// UserBySession implements auth.SessionStore.
func (c *Conf) UserBySession(ctx context.Context, sessionID string) (string, []string, error) {
	query := `
		SELECT u.id, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > NOW()
	`
	var userID, role string
	err := c.db.QueryRowContext(ctx, query, sessionID).Scan(&userID, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrSessionNotFound
		}
		return "", nil, fmt.Errorf("failed to query session: %w", err)
	}
	return userID, []string{role}, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
