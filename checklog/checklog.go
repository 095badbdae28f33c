// Package checklog defines the authorization decision audit Entry.
package checklog

import (
	"time"

	"github.com/xraph/gatehouse/id"
)

// Entry is a single authorization decision audit record.
type Entry struct {
	ID                 id.CheckLogID `json:"id" db:"id"`
	TenantID           int64         `json:"tenant_id" db:"tenant_id"`
	UserID             int64         `json:"user_id" db:"user_id"`
	Username           string        `json:"username,omitempty" db:"username"`
	Action             string        `json:"action" db:"action"`
	Allowed            bool          `json:"allowed" db:"allowed"`
	Require            string        `json:"require,omitempty" db:"require"`
	MissingRoles       []string      `json:"missing_roles,omitempty" db:"missing_roles"`
	MissingPermissions []string      `json:"missing_permissions,omitempty" db:"missing_permissions"`
	EvalTimeNs         int64         `json:"eval_time_ns" db:"eval_time_ns"`
	RequestIP          string        `json:"request_ip,omitempty" db:"request_ip"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying check logs.
type QueryFilter struct {
	TenantID int64      `json:"tenant_id,omitempty"`
	UserID   *int64     `json:"user_id,omitempty"`
	Action   string     `json:"action,omitempty"`
	Allowed  *bool      `json:"allowed,omitempty"`
	After    *time.Time `json:"after,omitempty"`
	Before   *time.Time `json:"before,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// Match reports whether e satisfies the filter, ignoring paging.
func (f *QueryFilter) Match(e *Entry) bool {
	if f == nil {
		return true
	}
	if f.TenantID != 0 && e.TenantID != f.TenantID {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Allowed != nil && e.Allowed != *f.Allowed {
		return false
	}
	if f.After != nil && !e.CreatedAt.After(*f.After) {
		return false
	}
	if f.Before != nil && !e.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}
