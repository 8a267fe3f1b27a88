// Package audit provides the append-only record of security events.
//
// Appending is observational: a failure to record never fails or rolls
// back the operation being recorded. Sensitive values (passwords, raw
// tokens) must be redacted before an Entry is constructed; RedactDetails
// strips well-known sensitive keys as a second line of defense.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action enumerates the auditable security events.
type Action string

const (
	ActionRegister             Action = "register"
	ActionLogin                Action = "login"
	ActionFailedLogin          Action = "failed_login"
	ActionLogout               Action = "logout"
	ActionUpdatePassword       Action = "update_password"
	ActionResetPasswordRequest Action = "reset_password_request"
	ActionResetPassword        Action = "reset_password"
	ActionVerifyEmail          Action = "verify_email"
	ActionVerifyPhone          Action = "verify_phone"
	ActionUpdateProfile        Action = "update_profile"
	ActionResendVerification   Action = "resend_verification"
	ActionAdminAction          Action = "admin_action"
)

// Origin records where a request came from.
type Origin struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Entry is one security event. Entries are never mutated or deleted.
type Entry struct {
	ID          uuid.UUID              `json:"id"`
	ActorID     *uuid.UUID             `json:"actor_id,omitempty"` // nil for anonymous actions
	Action      Action                 `json:"action"`
	Description string                 `json:"description"`
	Origin      Origin                 `json:"origin"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Recorder persists audit entries.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
}

// Filter narrows a listing of audit entries.
type Filter struct {
	ActorID *uuid.UUID
	Action  Action // empty matches all
	Limit   int
	Offset  int
}

// sensitiveKeys are detail keys that must never reach a recorder.
var sensitiveKeys = map[string]struct{}{
	"password":     {},
	"new_password": {},
	"old_password": {},
	"token":        {},
	"raw_token":    {},
	"code":         {},
	"secret":       {},
}

// RedactDetails returns a copy of details with sensitive keys removed.
func RedactDetails(details map[string]interface{}) map[string]interface{} {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(details))
	for k, v := range details {
		if _, sensitive := sensitiveKeys[k]; sensitive {
			continue
		}
		out[k] = v
	}
	return out
}

// NewEntry builds an entry with redacted details and a timestamp.
func NewEntry(actorID *uuid.UUID, action Action, description string, origin Origin, details map[string]interface{}) Entry {
	return Entry{
		ID:          uuid.New(),
		ActorID:     actorID,
		Action:      action,
		Description: description,
		Origin:      origin,
		Details:     RedactDetails(details),
		Timestamp:   time.Now().UTC(),
	}
}
