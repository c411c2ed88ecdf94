// Package memory is an in-process identity service and directory store with
// the same behavior as the hosted ones. It backs the demo mode and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/pubsub"
	"github.com/naveenspark/roster/pkg/client"
	"github.com/naveenspark/roster/pkg/domain"
)

// Operation names used by Fail and Calls.
const (
	OpCreateAccount   = "CreateAccount"
	OpSignIn          = "SignIn"
	OpPasswordReset   = "SendPasswordReset"
	OpDeleteAccount   = "DeleteAccount"
	OpRefresh         = "Refresh"
	OpProfile         = "Profile"
	OpProfiles        = "Profiles"
	OpStudentIDExists = "StudentIDExists"
	OpSetProfile      = "SetProfile"
	OpUpdateProfile   = "UpdateProfile"
	OpSubscribe       = "Subscribe"
)

const tokenTTL = time.Hour

type user struct {
	uid          string
	email        string
	passwordHash []byte
	refreshToken string
}

// Backend implements both the auth and the store contracts.
type Backend struct {
	mu       sync.Mutex
	users    map[string]*user // by lower-cased email
	profiles map[string]domain.ProfileFields
	failures map[string]error
	calls    []string
	resets   []string
	secret   []byte
	cost     int
	broker   *pubsub.Broker[[]domain.StudentProfile]
	now      func() time.Time
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithBcryptCost sets the password hashing cost; tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(b *Backend) { b.cost = cost }
}

// New returns an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		users:    make(map[string]*user),
		profiles: make(map[string]domain.ProfileFields),
		failures: make(map[string]error),
		secret:   []byte(uuid.NewString()),
		cost:     bcrypt.DefaultCost,
		broker:   pubsub.NewBroker[[]domain.StudentProfile](),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close releases subscribers.
func (b *Backend) Close() {
	b.broker.Close()
}

// Fail makes the next call of op return err.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// Calls returns the operations invoked so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// PasswordResets returns the emails a reset was requested for.
func (b *Backend) PasswordResets() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.resets...)
}

// HasAccount reports whether an account exists for email.
func (b *Backend) HasAccount(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[strings.ToLower(email)]
	return ok
}

// begin records op and returns an injected failure, if any. Caller holds mu.
func (b *Backend) beginLocked(ctx context.Context, op string) error {
	b.calls = append(b.calls, op)
	if err := ctx.Err(); err != nil {
		return &domain.RemoteError{Op: op, Err: err}
	}
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	return nil
}

// CreateAccount registers a new email/password account.
func (b *Backend) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpCreateAccount); err != nil {
		return domain.Account{}, err
	}

	key := strings.ToLower(email)
	if _, ok := b.users[key]; ok {
		return domain.Account{}, &domain.DuplicateEmailError{Email: email}
	}
	if len(password) < domain.MinPasswordLen {
		return domain.Account{}, &domain.RemoteError{Op: "create account", Message: "WEAK_PASSWORD : Password should be at least 6 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return domain.Account{}, &domain.RemoteError{Op: "create account", Err: err}
	}

	u := &user{uid: uuid.NewString(), email: email, passwordHash: hash}
	b.users[key] = u
	log.Info(log.CatAuth, "memory account created", "uid", u.uid)
	return b.issueLocked(u)
}

// SignIn checks the password for email.
func (b *Backend) SignIn(ctx context.Context, email, password string) (domain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpSignIn); err != nil {
		return domain.Account{}, err
	}

	u, ok := b.users[strings.ToLower(email)]
	if !ok {
		return domain.Account{}, domain.ErrUnknownUser
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return domain.Account{}, domain.ErrBadCredentials
	}
	return b.issueLocked(u)
}

// SendPasswordReset records the request. Unknown emails are reported like the hosted service does.
func (b *Backend) SendPasswordReset(ctx context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpPasswordReset); err != nil {
		return err
	}
	if _, ok := b.users[strings.ToLower(email)]; !ok {
		return domain.ErrUnknownUser
	}
	b.resets = append(b.resets, email)
	return nil
}

// DeleteAccount removes the account owning acct's ID token.
func (b *Backend) DeleteAccount(ctx context.Context, acct domain.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpDeleteAccount); err != nil {
		return err
	}

	uid, err := b.verifyLocked(acct.IDToken)
	if err != nil {
		return err
	}
	for key, u := range b.users {
		if u.uid == uid {
			delete(b.users, key)
			log.Info(log.CatAuth, "memory account deleted", "uid", uid)
			return nil
		}
	}
	return fmt.Errorf("delete account: %w", domain.ErrNotSignedIn)
}

// Refresh issues a new ID token for a refresh token.
func (b *Backend) Refresh(ctx context.Context, refreshToken string) (domain.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpRefresh); err != nil {
		return domain.Account{}, err
	}
	for _, u := range b.users {
		if refreshToken != "" && u.refreshToken == refreshToken {
			return b.issueLocked(u)
		}
	}
	return domain.Account{}, fmt.Errorf("refresh token: %w", domain.ErrNotSignedIn)
}

func (b *Backend) issueLocked(u *user) (domain.Account, error) {
	now := b.now()
	exp := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   u.uid,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return domain.Account{}, &domain.RemoteError{Op: "issue token", Err: err}
	}
	u.refreshToken = uuid.NewString()
	return domain.Account{
		UserID:       u.uid,
		Email:        u.email,
		IDToken:      idToken,
		RefreshToken: u.refreshToken,
		ExpiresAt:    exp,
	}, nil
}

// verifyLocked returns the user ID an ID token was issued to.
func (b *Backend) verifyLocked(idToken string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	if err != nil {
		return "", fmt.Errorf("verify token: %w", domain.ErrNotSignedIn)
	}
	return claims.Subject, nil
}

// Profile returns the record stored under userID.
func (b *Backend) Profile(ctx context.Context, userID string) (domain.StudentProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpProfile); err != nil {
		return domain.StudentProfile{}, err
	}
	f, ok := b.profiles[userID]
	if !ok {
		return domain.StudentProfile{}, domain.ErrProfileNotFound
	}
	return domain.StudentProfile{UserID: userID, ProfileFields: f}, nil
}

// Profiles returns every record ordered by user ID.
func (b *Backend) Profiles(ctx context.Context) ([]domain.StudentProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpProfiles); err != nil {
		return nil, err
	}
	return b.snapshotLocked(), nil
}

// StudentIDExists reports whether any record has studentID.
func (b *Backend) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.beginLocked(ctx, OpStudentIDExists); err != nil {
		return false, err
	}
	for _, f := range b.profiles {
		if f.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// SetProfile writes the full record under userID.
func (b *Backend) SetProfile(ctx context.Context, userID string, fields domain.ProfileFields) error {
	return b.write(ctx, OpSetProfile, userID, fields)
}

// UpdateProfile merges fields into the record under userID.
func (b *Backend) UpdateProfile(ctx context.Context, userID string, fields domain.ProfileFields) error {
	return b.write(ctx, OpUpdateProfile, userID, fields)
}

func (b *Backend) write(ctx context.Context, op, userID string, fields domain.ProfileFields) error {
	b.mu.Lock()
	if err := b.beginLocked(ctx, op); err != nil {
		b.mu.Unlock()
		return err
	}
	b.profiles[userID] = fields
	snap := b.snapshotLocked()
	b.mu.Unlock()

	b.broker.Publish(pubsub.UpdatedEvent, snap)
	return nil
}

// Put stores a profile directly, bypassing auth. Used to seed demo data.
func (b *Backend) Put(p domain.StudentProfile) {
	b.mu.Lock()
	b.profiles[p.UserID] = p.ProfileFields
	snap := b.snapshotLocked()
	b.mu.Unlock()
	b.broker.Publish(pubsub.UpdatedEvent, snap)
}

// Subscribe streams full snapshots: the current state first, then one per write.
func (b *Backend) Subscribe(ctx context.Context) (<-chan client.Snapshot, error) {
	b.mu.Lock()
	if err := b.beginLocked(ctx, OpSubscribe); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	events := b.broker.Subscribe(ctx)
	initial := b.snapshotLocked()
	b.mu.Unlock()

	out := make(chan client.Snapshot, 1)
	out <- client.Snapshot{Profiles: initial}
	go func() {
		defer close(out)
		for ev := range events {
			select {
			case out <- client.Snapshot{Profiles: ev.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Backend) snapshotLocked() []domain.StudentProfile {
	out := make([]domain.StudentProfile, 0, len(b.profiles))
	for uid, f := range b.profiles {
		out = append(out, domain.StudentProfile{UserID: uid, ProfileFields: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
