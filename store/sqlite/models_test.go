package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/id"
)

func TestCheckLogModelEncodesMissingNames(t *testing.T) {
	e := &checklog.Entry{
		ID:           id.NewCheckLogID(),
		TenantID:     1,
		Action:       "DeleteUser",
		Require:      "all",
		MissingRoles: []string{"Admin"},
	}

	m, err := checkLogToModel(e)
	require.NoError(t, err)
	assert.Equal(t, `["Admin"]`, m.MissingRoles)
	assert.Equal(t, `[]`, m.MissingPermissions)

	back, err := checkLogFromModel(m)
	require.NoError(t, err)
	assert.Equal(t, e.ID.String(), back.ID.String())
	assert.Equal(t, []string{"Admin"}, back.MissingRoles)
	assert.Empty(t, back.MissingPermissions)
}

func TestCheckLogModelRejectsCorruptJSON(t *testing.T) {
	_, err := checkLogFromModel(&checkLogModel{ID: id.NewCheckLogID().String(), MissingRoles: "{"})
	assert.Error(t, err)
}
