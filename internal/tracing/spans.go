package tracing

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrUserID    = "user.id"
	AttrStudentID = "student.id"
	AttrStage     = "workflow.stage"
	AttrCount     = "directory.count"
	AttrErrorType = "error.type"
)

// Span name prefixes.
const (
	SpanPrefixWorkflow = "workflow."
	SpanPrefixStage    = "stage."
)

// Event names.
const (
	EventRollback     = "account.rollback"
	EventSnapshot     = "directory.snapshot"
	EventCacheHit     = "cache.hit"
	EventValidateFail = "validation.failed"
)

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorType, fmt.Sprintf("%T", err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
