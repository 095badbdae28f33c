package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/entity"
)

func TestFieldMapsID(t *testing.T) {
	assert.Equal(t, "_id", field(entity.ColID))
	assert.Equal(t, "name", field("name"))
}

func TestCheckLogFilter(t *testing.T) {
	assert.Empty(t, checkLogFilter(nil))

	before := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	allowed := true
	f := checkLogFilter(&checklog.QueryFilter{TenantID: 2, Allowed: &allowed, Before: &before})

	assert.Equal(t, bson.M{
		"tenant_id":  int64(2),
		"allowed":    true,
		"created_at": bson.M{"$lt": before},
	}, f)
}

func TestMigrationIndexesCoverEveryCollection(t *testing.T) {
	idx := migrationIndexes()
	for _, col := range []string{
		colUsers, colRoles, colUserRoles, colPermissions,
		colRolePermissions, colActionRoles, colActionPermissions, colCheckLogs,
	} {
		assert.NotEmpty(t, idx[col], col)
	}
}
