package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/pkg/domain"
)

// SignIn checks the credentials with the auth service and persists the session.
func (s *Service) SignIn(ctx context.Context, in domain.SignInInput) (acct domain.Account, err error) {
	ctx, span := s.startSpan(ctx, "sign_in")
	defer func() { tracing.EndSpan(span, err) }()

	if err := domain.ValidateSignIn(in); err != nil {
		span.AddEvent(tracing.EventValidateFail)
		return domain.Account{}, err
	}
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)

	acct, err = s.auth.SignIn(ctx, email, password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("workflow.SignIn: %w", err)
	}
	span.SetAttributes(attribute.String(tracing.AttrUserID, acct.UserID))

	if err := s.session.SignIn(acct); err != nil {
		return domain.Account{}, fmt.Errorf("workflow.SignIn: %w", err)
	}
	s.profiles.Invalidate(ctx, acct.UserID)
	log.Info(log.CatWorkflow, "signed in", "uid", acct.UserID)
	return acct, nil
}

// ResetPassword asks the auth service to email a reset link.
func (s *Service) ResetPassword(ctx context.Context, email string) (err error) {
	ctx, span := s.startSpan(ctx, "reset_password")
	defer func() { tracing.EndSpan(span, err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ValidationErrors{{Field: domain.FieldEmail, Message: "Email is required"}}
	}
	if err := s.auth.SendPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("workflow.ResetPassword: %w", err)
	}
	return nil
}

// SignOut forgets the credentials and clears the persisted session.
func (s *Service) SignOut(ctx context.Context) error {
	uid := s.session.UserID()
	if err := s.session.SignOut(); err != nil {
		return fmt.Errorf("workflow.SignOut: %w", err)
	}
	if uid != "" {
		s.profiles.Invalidate(ctx, uid)
	}
	return nil
}
