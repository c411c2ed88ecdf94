package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/pkg/domain"
)

// Stage is a step of the registration pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageValidating
	StageCheckingUniqueness
	StageCreatingAccount
	StageSavingProfile
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageValidating:
		return "validating"
	case StageCheckingUniqueness:
		return "checking_uniqueness"
	case StageCreatingAccount:
		return "creating_account"
	case StageSavingProfile:
		return "saving_profile"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Busy reports whether a request is in flight at this stage.
func (s Stage) Busy() bool {
	return s != StageIdle && s != StageDone
}

// ProgressFunc observes stage transitions. It is called on the goroutine
// running Register.
type ProgressFunc func(Stage)

// Register validates the form, checks that the student ID is free, creates the
// account and saves the profile, then marks the session logged in.
//
// A failed profile save deletes the just-created account before the
// *domain.ProfileSaveError is returned. Any failure is reported to progress
// as StageIdle.
func (s *Service) Register(ctx context.Context, in domain.RegistrationInput, progress ProgressFunc) (prof domain.StudentProfile, err error) {
	if progress == nil {
		progress = func(Stage) {}
	}
	in = in.Normalize()

	ctx, span := s.startSpan(ctx, "register", attribute.String(tracing.AttrStudentID, in.Profile.StudentID))
	defer func() {
		if err != nil {
			progress(StageIdle)
			log.Warn(log.CatWorkflow, "registration failed", "student_id", in.Profile.StudentID, "error", err)
		}
		tracing.EndSpan(span, err)
	}()

	if err := s.stage(ctx, StageValidating, progress, func(context.Context) error {
		return domain.ValidateRegistration(in)
	}); err != nil {
		span.AddEvent(tracing.EventValidateFail)
		return domain.StudentProfile{}, err
	}

	if err := s.stage(ctx, StageCheckingUniqueness, progress, func(ctx context.Context) error {
		exists, err := s.store.StudentIDExists(ctx, in.Profile.StudentID)
		if err != nil {
			return err
		}
		if exists {
			return &domain.DuplicateStudentIDError{StudentID: in.Profile.StudentID}
		}
		return nil
	}); err != nil {
		return domain.StudentProfile{}, fmt.Errorf("workflow.Register: %w", err)
	}

	var acct domain.Account
	if err := s.stage(ctx, StageCreatingAccount, progress, func(ctx context.Context) error {
		var err error
		acct, err = s.auth.CreateAccount(ctx, in.Email, in.Password)
		return err
	}); err != nil {
		return domain.StudentProfile{}, fmt.Errorf("workflow.Register: %w", err)
	}
	span.SetAttributes(attribute.String(tracing.AttrUserID, acct.UserID))

	// The store authenticates with the new account's token.
	s.session.Begin(acct)
	fields := in.Profile.Fields(s.now())

	if err := s.stage(ctx, StageSavingProfile, progress, func(ctx context.Context) error {
		return s.store.SetProfile(ctx, acct.UserID, fields)
	}); err != nil {
		saveErr := &domain.ProfileSaveError{UserID: acct.UserID, Err: err}
		saveErr.RollbackErr = s.rollback(ctx, span, acct)
		s.session.Discard()
		return domain.StudentProfile{}, fmt.Errorf("workflow.Register: %w", saveErr)
	}

	if err := s.session.MarkLoggedIn(); err != nil {
		return domain.StudentProfile{}, fmt.Errorf("workflow.Register: %w", err)
	}
	progress(StageDone)

	prof = domain.StudentProfile{UserID: acct.UserID, ProfileFields: fields}
	s.profiles.Invalidate(ctx, acct.UserID)
	log.Info(log.CatWorkflow, "registered", "uid", acct.UserID, "student_id", fields.StudentID)
	return prof, nil
}

// rollback deletes an account whose profile could not be saved.
func (s *Service) rollback(ctx context.Context, span trace.Span, acct domain.Account) error {
	span.AddEvent(tracing.EventRollback, trace.WithAttributes(attribute.String(tracing.AttrUserID, acct.UserID)))
	// The caller's context may already be done; the delete still has to go out.
	err := s.auth.DeleteAccount(context.WithoutCancel(ctx), acct)
	if err != nil {
		log.ErrorErr(log.CatWorkflow, "account rollback failed", err, "uid", acct.UserID)
		return err
	}
	log.Info(log.CatWorkflow, "account rolled back", "uid", acct.UserID)
	return nil
}

func (s *Service) stage(ctx context.Context, st Stage, progress ProgressFunc, fn func(context.Context) error) error {
	progress(st)
	ctx, span := s.tracer.Start(ctx, tracing.SpanPrefixStage+st.String(),
		trace.WithAttributes(attribute.String(tracing.AttrStage, st.String())))
	err := fn(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		log.Debug(log.CatWorkflow, "stage failed", "stage", st, "error", err)
	}
	return err
}
