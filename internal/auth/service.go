package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gustavobizon/sprint-programacao/internal/audit"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username       string
	Password       string
	RecoverySecret string
	Role           Role
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
}

// Service implements registration, password recovery and change, and
// login on top of an AccountRepository and a TokenService.
type Service struct {
	accounts AccountRepository
	tokens   *TokenService
	audit    audit.Recorder
}

// NewService creates a Service. A nil recorder disables auditing.
func NewService(accounts AccountRepository, tokens *TokenService, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{accounts: accounts, tokens: tokens, audit: recorder}
}

// Register creates an account. Conflicts are decided by the store's
// unique constraints; the username lookup beforehand only saves a bcrypt
// round for the common case.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	switch {
	case in.Username == "":
		return nil, fmt.Errorf("%w: username", ErrMissingField)
	case in.Password == "":
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	case in.RecoverySecret == "":
		return nil, fmt.Errorf("%w: dogName", ErrMissingField)
	}

	role := in.Role
	if role == "" {
		role = DefaultRole
	}
	if !IsValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	_, err := s.accounts.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, ErrUsernameExists
	case !errors.Is(err, ErrAccountNotFound):
		return nil, fmt.Errorf("checking username: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Username:       in.Username,
		PasswordHash:   hash,
		RecoverySecret: in.RecoverySecret,
		Role:           role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &audit.Log{
		Action:     audit.ActionRegister,
		EntityType: "account",
		EntityID:   strconv.FormatInt(account.ID, 10),
		Source:     "api",
		Details:    map[string]any{"username": account.Username, "role": string(account.Role)},
	})
	return account, nil
}

// Recover returns the stored password hash of the account matching both
// username and recovery secret. Any mismatch is ErrInvalidRecovery, without
// saying which field was wrong.
func (s *Service) Recover(ctx context.Context, username, recoverySecret string) (string, error) {
	if username == "" || recoverySecret == "" {
		return "", ErrInvalidRecovery
	}
	account, err := s.accounts.GetByCredentials(ctx, username, recoverySecret)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrInvalidRecovery
		}
		return "", fmt.Errorf("looking up account: %w", err)
	}
	return account.PasswordHash, nil
}

// ChangePassword replaces the password of username. The current password
// is not required.
func (s *Service) ChangePassword(ctx context.Context, username, newPassword string) error {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("looking up account: %w", err)
	}
	if newPassword == "" {
		return fmt.Errorf("%w: newPassword", ErrMissingField)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, username, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, &audit.Log{
		Action:     audit.ActionPasswordChange,
		EntityType: "account",
		EntityID:   strconv.FormatInt(account.ID, 10),
		Source:     "api",
	})
	return nil
}

// Login checks the password and issues a session token. Unknown users and
// wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	ok, err := VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// Tokens returns the TokenService used to issue session tokens.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}
