// Package workflow runs the user-facing operations of the directory client:
// registration, sign-in, profile edits and the live directory feed. Every
// operation is a blocking call that returns exactly one result.
package workflow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/naveenspark/roster/internal/cache"
	"github.com/naveenspark/roster/internal/session"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/pkg/client"
	"github.com/naveenspark/roster/pkg/domain"
)

// Auth is the identity service.
type Auth interface {
	CreateAccount(ctx context.Context, email, password string) (domain.Account, error)
	SignIn(ctx context.Context, email, password string) (domain.Account, error)
	SendPasswordReset(ctx context.Context, email string) error
	DeleteAccount(ctx context.Context, acct domain.Account) error
}

// Store is the directory store.
type Store interface {
	Profile(ctx context.Context, userID string) (domain.StudentProfile, error)
	Profiles(ctx context.Context) ([]domain.StudentProfile, error)
	StudentIDExists(ctx context.Context, studentID string) (bool, error)
	SetProfile(ctx context.Context, userID string, fields domain.ProfileFields) error
	UpdateProfile(ctx context.Context, userID string, fields domain.ProfileFields) error
	Subscribe(ctx context.Context) (<-chan client.Snapshot, error)
}

// Options tunes a Service. The zero value is usable.
type Options struct {
	Tracer   trace.Tracer
	CacheTTL time.Duration
	Now      func() time.Time
}

// Service binds the backends to the session.
type Service struct {
	auth     Auth
	store    Store
	session  *session.Session
	tracer   trace.Tracer
	profiles *cache.ReadThrough[domain.StudentProfile, string]
	now      func() time.Time
}

// New creates a Service.
func New(auth Auth, store Store, sess *session.Session, opts Options) *Service {
	s := &Service{
		auth:    auth,
		store:   store,
		session: sess,
		tracer:  opts.Tracer,
		now:     opts.Now,
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("roster")
	}
	if s.now == nil {
		s.now = time.Now
	}

	ttl := opts.CacheTTL
	profileCache := cache.NewInMemory[domain.StudentProfile]("profiles", ttl, cache.DefaultCleanupInterval)
	s.profiles = cache.NewReadThrough(profileCache, s.loadProfile, ttl, ttl <= 0)
	return s
}

// Session returns the session the service acts for.
func (s *Service) Session() *session.Session { return s.session }

// Store returns the directory store.
func (s *Service) Store() Store { return s.store }

func (s *Service) loadProfile(ctx context.Context, userID string) (domain.StudentProfile, error) {
	return s.store.Profile(ctx, userID)
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, tracing.SpanPrefixWorkflow+name, trace.WithAttributes(attrs...))
}

// UserMessage renders err the way it is shown to the user: the domain
// message without the call-site prefixes added while it propagated.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verrs domain.ValidationErrors
	var dupID *domain.DuplicateStudentIDError
	var dupEmail *domain.DuplicateEmailError
	var saveErr *domain.ProfileSaveError
	var remote *domain.RemoteError
	switch {
	case errors.As(err, &verrs):
		return verrs.Error()
	case errors.As(err, &dupID):
		return dupID.Error()
	case errors.As(err, &dupEmail):
		return dupEmail.Error()
	case errors.As(err, &saveErr):
		return saveErr.Error()
	case errors.Is(err, domain.ErrUnknownUser):
		return "no account is registered with this email"
	case errors.Is(err, domain.ErrBadCredentials):
		return "incorrect password"
	case errors.Is(err, domain.ErrNotSignedIn):
		return "your session has expired, please log in again"
	case errors.Is(err, domain.ErrProfileNotFound):
		return "no profile found for this account"
	case errors.As(err, &remote):
		if remote.Message != "" {
			return remote.Message
		}
		return remote.Error()
	}
	return err.Error()
}
