package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/domain/account"
)

// AccountService is the mock-auth session store. It is SignedOut until
// SignUp or SignIn succeeds and stays SignedIn across restarts until SignOut.
type AccountService struct {
	repo    *persist.AccountRepository
	metrics *Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	current *account.User
}

// NewAccountService creates a new AccountService. Call Init before use.
func NewAccountService(repo *persist.AccountRepository, metrics *Metrics, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
	}
}

// Init restores the signed-in user from storage. An undecodable value is
// treated as signed out.
func (s *AccountService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.repo.LoadCurrent(ctx)
	switch {
	case errors.Is(err, persist.ErrMalformed):
		s.logger.Warn("discarding unreadable session", "key", persist.KeyCurrentUser, "error", err)
		s.metrics.recovered(persist.KeyCurrentUser)
		u = nil
	case err != nil:
		return fmt.Errorf("load session: %w", err)
	}
	s.current = u
	return nil
}

// loadRegistry reads the registry, replacing an undecodable value with an
// empty one. Caller must hold s.mu.
func (s *AccountService) loadRegistry(ctx context.Context) (account.Registry, error) {
	reg, err := s.repo.LoadRegistry(ctx)
	if errors.Is(err, persist.ErrMalformed) {
		s.logger.Warn("discarding unreadable account registry", "key", persist.KeyUsers, "error", err)
		s.metrics.recovered(persist.KeyUsers)
		return account.Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return reg, nil
}

// SignUp registers a new account and signs it in.
// Returns account.ErrInvalidInput when a field fails validation and
// account.ErrAccountExists when the email is already registered.
func (s *AccountService) SignUp(ctx context.Context, name, email, password string) (user account.User, err error) {
	ctx, span := startSpan(ctx, "AccountService.SignUp")
	defer func() { endSpan(span, err) }()

	in := account.SignUpInput{Name: name, Email: email, Password: password}
	if err := in.Validate(); err != nil {
		s.metrics.auth("signup", "invalid")
		return account.User{}, err
	}
	in = in.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		s.metrics.auth("signup", "error")
		return account.User{}, err
	}
	if _, exists := reg[in.Email]; exists {
		s.metrics.auth("signup", "exists")
		return account.User{}, account.ErrAccountExists
	}

	hash, err := account.HashPassword(in.Password)
	if err != nil {
		s.metrics.auth("signup", "error")
		return account.User{}, fmt.Errorf("hash password: %w", err)
	}

	next := reg.Clone()
	next[in.Email] = account.Record{Name: in.Name, PasswordHash: hash}
	if err := s.repo.SaveRegistry(ctx, next); err != nil {
		s.metrics.auth("signup", "error")
		return account.User{}, fmt.Errorf("persist accounts: %w", err)
	}

	u := account.User{Name: in.Name, Email: in.Email}
	if err := s.setCurrent(ctx, &u); err != nil {
		s.metrics.auth("signup", "error")
		return account.User{}, err
	}

	s.metrics.auth("signup", "ok")
	s.logger.Info("account created", "email", in.Email)
	return u, nil
}

// SignIn signs in with email and password. Unknown emails and wrong
// passwords both return account.ErrInvalidCredentials.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (user account.User, err error) {
	ctx, span := startSpan(ctx, "AccountService.SignIn")
	defer func() { endSpan(span, err) }()

	key := account.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		s.metrics.auth("signin", "error")
		return account.User{}, err
	}

	rec, ok := reg[key]
	if !ok {
		s.metrics.auth("signin", "invalid")
		return account.User{}, account.ErrInvalidCredentials
	}
	match, err := account.VerifyPassword(rec, password)
	if err != nil {
		s.logger.Warn("stored credential unusable", "email", key, "error", err)
		s.metrics.auth("signin", "invalid")
		return account.User{}, account.ErrInvalidCredentials
	}
	if !match {
		s.metrics.auth("signin", "invalid")
		return account.User{}, account.ErrInvalidCredentials
	}

	u := account.User{Name: rec.Name, Email: key}
	if err := s.setCurrent(ctx, &u); err != nil {
		s.metrics.auth("signin", "error")
		return account.User{}, err
	}

	s.metrics.auth("signin", "ok")
	s.logger.Info("signed in", "email", key)
	return u, nil
}

// SignOut ends the session. The account registry is kept.
func (s *AccountService) SignOut(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "AccountService.SignOut")
	defer func() { endSpan(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current
	if err := s.setCurrent(ctx, nil); err != nil {
		return err
	}
	if prev != nil {
		s.logger.Info("signed out", "email", prev.Email)
	}
	return nil
}

// setCurrent persists u as the session then publishes it. Caller must hold s.mu.
func (s *AccountService) setCurrent(ctx context.Context, u *account.User) error {
	if err := s.repo.SaveCurrent(ctx, u); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if u == nil {
		s.current = nil
		return nil
	}
	cp := *u
	s.current = &cp
	return nil
}

// Current returns the signed-in user and whether anyone is signed in.
func (s *AccountService) Current() (account.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return account.User{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a user is signed in.
func (s *AccountService) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}
