// Package audit writes one structured log line per state change made through
// the account and admin surfaces. Entries carry the acting principal so that
// a single grep over type=audit reconstructs who changed what.
package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/obs"
)

// ErrNoAction is returned by Record for an event without an action name.
var ErrNoAction = errors.New("audit: action is required")

// Event describes a single audited change. Resource names the kind of
// record touched (user, agency, school) and ResourceID its key.
type Event struct {
	Action     string
	Resource   string
	ResourceID string
	Fields     map[string]any
}

type requestIDKey struct{}

// WithRequestID tags ctx so later events can be correlated with the request log.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id = strings.TrimSpace(id); id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Record logs e with the request id and the caller's identity found in ctx.
// Anonymous calls (registration, login) are recorded with actor "anonymous".
func Record(ctx context.Context, e Event) error {
	return record(ctx, obs.Logger(), e)
}

func record(ctx context.Context, log logrus.FieldLogger, e Event) error {
	action := strings.TrimSpace(e.Action)
	if action == "" {
		return ErrNoAction
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry := logrus.Fields{
		"type":   "audit",
		"action": action,
		"actor":  "anonymous",
	}
	if e.Resource != "" {
		entry["resource"] = e.Resource
	}
	if e.ResourceID != "" {
		entry["resource_id"] = e.ResourceID
	}
	if rid := requestID(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		entry["actor"] = p.UserID
		if p.AgencyID != "" {
			entry["actor_agency_id"] = p.AgencyID
		}
	}
	if len(e.Fields) > 0 {
		detail := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			detail[k] = v
		}
		entry["detail"] = detail
	}

	log.WithFields(entry).Info("audit")
	return nil
}
