// Package session keeps the signed-in identity: the persisted logged-in flag
// and user ID, plus the credentials used to call the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/pkg/domain"
)

// Record is the on-disk session file.
type Record struct {
	LoggedIn     bool      `yaml:"is_logged_in"`
	UserID       string    `yaml:"user_id"`
	Email        string    `yaml:"email,omitempty"`
	IDToken      string    `yaml:"id_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty"`
}

// Refresher trades a refresh token for a new ID token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.Account, error)
}

// Session is safe for concurrent use.
//
// The logged-in flag is only set once registration or sign-in completes; the
// credentials are held from account creation onward so the profile can be
// written before the flag flips.
type Session struct {
	mu        sync.Mutex
	path      string
	loggedIn  bool
	account   *domain.Account
	// held is the account Begin replaced; Discard puts it back.
	held      *domain.Account
	pending   bool
	refresher Refresher
	now       func() time.Time
}

// Open loads the session file at path. A missing file is a signed-out session.
func Open(path string, refresher Refresher) (*Session, error) {
	s := &Session{path: path, refresher: refresher, now: time.Now}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the session file location.
func (s *Session) Path() string { return s.path }

// LoggedIn reports whether a completed sign-in is persisted.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// UserID returns the current user, or "" when there are no credentials.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return ""
	}
	return s.account.UserID
}

// Account returns a copy of the held credentials.
func (s *Session) Account() (domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return domain.Account{}, false
	}
	return *s.account, true
}

// Begin holds acct's credentials in memory without marking the session logged in.
func (s *Session) Begin(acct domain.Account) {
	if acct.ExpiresAt.IsZero() {
		acct.ExpiresAt = TokenExpiry(acct.IDToken)
	}
	s.mu.Lock()
	if !s.pending {
		s.held = s.account
	}
	s.pending = true
	s.account = &acct
	s.mu.Unlock()
	log.Debug(log.CatSession, "credentials held", "uid", acct.UserID)
}

// MarkLoggedIn persists the held credentials with the logged-in flag set.
func (s *Session) MarkLoggedIn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return fmt.Errorf("session.MarkLoggedIn: %w", domain.ErrNotSignedIn)
	}
	s.loggedIn = true
	s.pending = false
	s.held = nil
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("session.MarkLoggedIn: %w", err)
	}
	log.Info(log.CatSession, "logged in", "uid", s.account.UserID)
	return nil
}

// SignIn holds acct and persists the logged-in flag.
func (s *Session) SignIn(acct domain.Account) error {
	s.Begin(acct)
	return s.MarkLoggedIn()
}

// Discard drops credentials from a Begin that was never marked logged in and
// restores whatever account was held before it.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending {
		return
	}
	s.account = s.held
	s.held = nil
	s.pending = false
}

// SignOut drops the credentials and clears the persisted flag and user ID.
func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := ""
	if s.account != nil {
		uid = s.account.UserID
	}
	s.account = nil
	s.held = nil
	s.pending = false
	s.loggedIn = false
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("session.SignOut: %w", err)
	}
	log.Info(log.CatSession, "signed out", "uid", uid)
	return nil
}

// Token returns a valid ID token, refreshing it when it has expired.
// With no credentials it returns "" so requests go out unauthenticated.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return "", nil
	}
	if !s.account.Expired(s.now()) || s.refresher == nil || s.account.RefreshToken == "" {
		return s.account.IDToken, nil
	}

	fresh, err := s.refresher.Refresh(ctx, s.account.RefreshToken)
	if err != nil {
		log.ErrorErr(log.CatSession, "token refresh failed", err, "uid", s.account.UserID)
		return "", fmt.Errorf("session.Token: %w", err)
	}
	s.account.IDToken = fresh.IDToken
	if fresh.RefreshToken != "" {
		s.account.RefreshToken = fresh.RefreshToken
	}
	s.account.ExpiresAt = fresh.ExpiresAt
	if s.account.ExpiresAt.IsZero() {
		s.account.ExpiresAt = TokenExpiry(fresh.IDToken)
	}
	if s.loggedIn {
		if err := s.saveLocked(); err != nil {
			log.ErrorErr(log.CatSession, "persist refreshed token failed", err)
		}
	}
	log.Debug(log.CatSession, "token refreshed", "uid", s.account.UserID)
	return s.account.IDToken, nil
}

// Reload re-reads the session file, e.g. after another process changed it.
// Credentials held by an unfinished registration are dropped.
func (s *Session) Reload() error {
	rec, err := readRecord(s.path)
	if err != nil {
		return fmt.Errorf("session.Reload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = nil
	s.pending = false
	if !rec.LoggedIn || rec.UserID == "" {
		s.loggedIn = false
		s.account = nil
		return nil
	}
	s.loggedIn = true
	s.account = &domain.Account{
		UserID:       rec.UserID,
		Email:        rec.Email,
		IDToken:      rec.IDToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
	}
	return nil
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return rec, nil
}

func (s *Session) saveLocked() error {
	rec := Record{LoggedIn: s.loggedIn}
	if s.loggedIn && s.account != nil {
		rec.UserID = s.account.UserID
		rec.Email = s.account.Email
		rec.IDToken = s.account.IDToken
		rec.RefreshToken = s.account.RefreshToken
		rec.ExpiresAt = s.account.ExpiresAt
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// TokenExpiry reads the exp claim of an ID token without verifying its
// signature. Returns the zero time when the token has no readable expiry.
func TokenExpiry(idToken string) time.Time {
	if idToken == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
