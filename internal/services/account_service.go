package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cashledger/internal/core"
	"cashledger/internal/ledger"
)

const minPasswordLen = 6

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters")
)

// AccountService owns accounts and resolves credentials to sessions.
type AccountService struct {
	store   ledger.Store
	monitor *BudgetMonitor
	cost    int
}

func NewAccountService(store ledger.Store, monitor *BudgetMonitor, bcryptCost int) *AccountService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{store: store, monitor: monitor, cost: bcryptCost}
}

// Register creates an account and returns its session.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (core.Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	verr := &core.ValidationError{}
	if name == "" {
		verr.Add("name", ErrEmptyName)
	}
	if err := validateEmail(email); err != nil {
		verr.Add("email", err)
	}
	if len(password) < minPasswordLen {
		verr.Add("password", ErrPasswordTooWeak)
	}
	if err := verr.Err(); err != nil {
		return core.Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.Session{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.CreateAccount(ctx, core.Account{Name: name, Email: email, PasswordHash: string(hash)}); err != nil {
		return core.Session{}, err
	}
	slog.InfoContext(ctx, "Account registered", "user_id", email)
	return core.Session{UserID: email}, nil
}

// Login checks credentials. Unknown email and wrong password both return
// core.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (core.Session, error) {
	email = normalizeEmail(email)
	acc, err := s.store.GetAccount(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return core.Session{}, core.ErrInvalidCredentials
	}
	return core.Session{UserID: acc.Email}, nil
}

// Account returns the session's account.
func (s *AccountService) Account(ctx context.Context, sess core.Session) (core.Account, error) {
	if err := sess.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.GetAccount(ctx, sess.UserID)
}

// VerifyPassword returns nil when password matches the session's account.
func (s *AccountService) VerifyPassword(ctx context.Context, sess core.Session, password string) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	_, err := s.Login(ctx, sess.UserID, password)
	return err
}

// UpdatePassword replaces the password after checking the current one.
func (s *AccountService) UpdatePassword(ctx context.Context, sess core.Session, current, next string) error {
	if err := s.VerifyPassword(ctx, sess, current); err != nil {
		return err
	}
	if len(next) < minPasswordLen {
		verr := &core.ValidationError{}
		verr.Add("new_password", ErrPasswordTooWeak)
		return verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.Atomically(ctx, func(u ledger.Unit) error {
		acc, err := u.GetAccount(ctx, sess.UserID)
		if err != nil {
			return err
		}
		acc.PasswordHash = string(hash)
		return u.UpdateAccount(ctx, acc)
	})
}

// ResetData clears transactions, budget and aggregates; the account stays.
func (s *AccountService) ResetData(ctx context.Context, sess core.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		return u.ClearUser(ctx, sess.UserID)
	}); err != nil {
		return fmt.Errorf("reset data: %w", err)
	}
	s.forget(sess.UserID)
	slog.InfoContext(ctx, "Account data reset", "user_id", sess.UserID)
	return nil
}

// DeleteAccount removes the account and all of its ledger data in one unit.
func (s *AccountService) DeleteAccount(ctx context.Context, sess core.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if err := s.store.Atomically(ctx, func(u ledger.Unit) error {
		if err := u.ClearUser(ctx, sess.UserID); err != nil {
			return err
		}
		return u.DeleteAccount(ctx, sess.UserID)
	}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.forget(sess.UserID)
	slog.InfoContext(ctx, "Account deleted", "user_id", sess.UserID)
	return nil
}

func (s *AccountService) forget(userID string) {
	if s.monitor != nil {
		s.monitor.Forget(userID)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
