package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/pkg/domain"
)

// LoadProfile returns the signed-in user's profile.
func (s *Service) LoadProfile(ctx context.Context) (prof domain.StudentProfile, err error) {
	uid := s.session.UserID()
	if uid == "" {
		return domain.StudentProfile{}, fmt.Errorf("workflow.LoadProfile: %w", domain.ErrNotSignedIn)
	}

	ctx, span := s.startSpan(ctx, "load_profile", attribute.String(tracing.AttrUserID, uid))
	defer func() { tracing.EndSpan(span, err) }()

	prof, err = s.profiles.Get(ctx, uid, uid)
	if err != nil {
		return domain.StudentProfile{}, fmt.Errorf("workflow.LoadProfile: %w", err)
	}
	return prof, nil
}

// UpdateProfile validates the edited fields and merges them into the stored
// record. The student ID is not re-checked for uniqueness.
func (s *Service) UpdateProfile(ctx context.Context, in domain.ProfileInput) (prof domain.StudentProfile, err error) {
	uid := s.session.UserID()
	if uid == "" {
		return domain.StudentProfile{}, fmt.Errorf("workflow.UpdateProfile: %w", domain.ErrNotSignedIn)
	}

	ctx, span := s.startSpan(ctx, "update_profile", attribute.String(tracing.AttrUserID, uid))
	defer func() { tracing.EndSpan(span, err) }()

	in = in.Normalize()
	if err := domain.ValidateProfile(in); err != nil {
		span.AddEvent(tracing.EventValidateFail)
		return domain.StudentProfile{}, err
	}

	fields := in.Fields(s.now())
	err = s.store.UpdateProfile(ctx, uid, fields)
	s.profiles.Invalidate(ctx, uid)
	if err != nil {
		return domain.StudentProfile{}, fmt.Errorf("workflow.UpdateProfile: %w", err)
	}

	log.Info(log.CatWorkflow, "profile updated", "uid", uid, "student_id", fields.StudentID)
	return domain.StudentProfile{UserID: uid, ProfileFields: fields}, nil
}

// Directory fetches every profile once and assembles the viewer's directory.
func (s *Service) Directory(ctx context.Context) (dir domain.Directory, err error) {
	ctx, span := s.startSpan(ctx, "directory")
	defer func() { tracing.EndSpan(span, err) }()

	records, err := s.store.Profiles(ctx)
	if err != nil {
		return domain.Directory{}, fmt.Errorf("workflow.Directory: %w", err)
	}
	dir = domain.AssembleDirectory(records, s.session.UserID())
	span.SetAttributes(attribute.Int(tracing.AttrCount, len(dir.Entries)))
	return dir, nil
}
