package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/gatehouse/checklog"
)

func TestFilterClauses(t *testing.T) {
	assert.Empty(t, filterClauses(nil))
	assert.Empty(t, filterClauses(&checklog.QueryFilter{Limit: 10}))

	uid := int64(7)
	allowed := false
	after := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	got := filterClauses(&checklog.QueryFilter{
		TenantID: 3,
		UserID:   &uid,
		Action:   "DeleteUser",
		Allowed:  &allowed,
		After:    &after,
	})

	assert.Equal(t, []clause{
		{"tenant_id = ?", int64(3)},
		{"user_id = ?", int64(7)},
		{"action = ?", "DeleteUser"},
		{"allowed = ?", false},
		{"created_at > ?", after},
	}, got)
}
