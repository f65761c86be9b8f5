package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"app/internal/model"
)

// Gateway is the persistence boundary of the wizard core: create, update,
// publish and fetch operations against the course store. Implemented by the
// HTTP client (upstream API) or the Postgres gateway (self-hosted).
type Gateway interface {
	CreateCourse(ctx context.Context, payload *model.Course) (*model.Course, error)
	UpdateCourse(ctx context.Context, identifier string, payload *model.Course) (*model.Course, error)
	PublishCourse(ctx context.Context, identifier string, publish bool) (*model.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error)
}

// Error is a failure surfaced by a gateway implementation. Details may carry a
// field-to-message map from the backend; the core flattens it for display but
// does not interpret it.
type Error struct {
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "gateway request failed"
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if flat := e.Flatten(); flat != "" {
		msg = msg + ": " + flat
	}
	return msg
}

// Flatten joins the detail map into a single display string with stable
// ordering.
func (e *Error) Flatten() string {
	if len(e.Details) == 0 {
		return ""
	}
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Details[f])
	}
	return strings.Join(parts, "; ")
}
