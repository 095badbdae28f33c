// Package mongo provides a MongoDB gatehouse backend using grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/id"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// Collection name constants.
const (
	colUsers             = "gatehouse_users"
	colRoles             = "gatehouse_roles"
	colUserRoles         = "gatehouse_user_roles"
	colPermissions       = "gatehouse_permissions"
	colRolePermissions   = "gatehouse_role_permissions"
	colActionRoles       = "gatehouse_action_roles"
	colActionPermissions = "gatehouse_action_permissions"
	colCheckLogs         = "gatehouse_check_logs"
)

// Compile-time interface check.
var _ datastore.Driver = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB gatehouse backend.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB

	users             *collection[*user.User, userModel]
	roles             *collection[*role.Role, roleModel]
	userRoles         *collection[*role.UserRole, userRoleModel]
	permissions       *collection[*permission.Permission, permissionModel]
	rolePermissions   *collection[*permission.RolePermission, rolePermissionModel]
	actionRoles       *collection[*action.ActionRole, actionRoleModel]
	actionPermissions *collection[*action.ActionPermission, actionPermissionModel]
	checkLogs         *checkLogStore
}

// New creates a new MongoDB backend.
func New(db *grove.DB) *Store {
	mdb := mongodriver.Unwrap(db)
	return &Store{
		db:                db,
		mdb:               mdb,
		users:             newCollection(mdb, "user", userToModel, userFromModel),
		roles:             newCollection(mdb, "role", roleToModel, roleFromModel),
		userRoles:         newCollection(mdb, "user role", userRoleToModel, userRoleFromModel),
		permissions:       newCollection(mdb, "permission", permissionToModel, permissionFromModel),
		rolePermissions:   newCollection(mdb, "role permission", rolePermissionToModel, rolePermissionFromModel),
		actionRoles:       newCollection(mdb, "action role", actionRoleToModel, actionRoleFromModel),
		actionPermissions: newCollection(mdb, "action permission", actionPermissionToModel, actionPermissionFromModel),
		checkLogs:         &checkLogStore{mdb: mdb},
	}
}

// Users returns the user collection.
func (s *Store) Users() datastore.Table[*user.User] { return s.users }

// Roles returns the role collection.
func (s *Store) Roles() datastore.Table[*role.Role] { return s.roles }

// UserRoles returns the user→role grant collection.
func (s *Store) UserRoles() datastore.Table[*role.UserRole] { return s.userRoles }

// Permissions returns the permission collection.
func (s *Store) Permissions() datastore.Table[*permission.Permission] { return s.permissions }

// RolePermissions returns the role→permission grant collection.
func (s *Store) RolePermissions() datastore.Table[*permission.RolePermission] {
	return s.rolePermissions
}

// ActionRoles returns the action→role grant collection.
func (s *Store) ActionRoles() datastore.Table[*action.ActionRole] { return s.actionRoles }

// ActionPermissions returns the action→permission grant collection.
func (s *Store) ActionPermissions() datastore.Table[*action.ActionPermission] {
	return s.actionPermissions
}

// CheckLogs returns the check log store.
func (s *Store) CheckLogs() checklog.Store { return s.checkLogs }

// Migrate creates indexes for all gatehouse collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("gatehouse/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// liveUnique builds a unique index over keys that only covers rows that
// are not soft-deleted.
func liveUnique(keys ...string) mongod.IndexModel {
	d := bson.D{{Key: entity.ColTenantID, Value: 1}}
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: 1})
	}
	return mongod.IndexModel{
		Keys: d,
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{entity.ColIsDeleted: false}),
	}
}

// migrationIndexes returns the index definitions for all gatehouse collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colUsers: {liveUnique(user.ColUsername)},
		colRoles: {liveUnique(role.ColName)},
		colUserRoles: {
			liveUnique(role.ColUserID, role.ColRoleID),
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role_id", Value: 1}}},
		},
		colPermissions: {liveUnique(permission.ColName)},
		colRolePermissions: {
			liveUnique(permission.ColRoleID, permission.ColPermissionID),
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "permission_id", Value: 1}}},
		},
		colActionRoles:       {liveUnique(action.ColActionName, action.ColRoleID)},
		colActionPermissions: {liveUnique(action.ColActionName, action.ColPermissionID)},
		colCheckLogs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Generic collection
// ──────────────────────────────────────────────────

type collection[E entity.Record, M any] struct {
	mdb       *mongodriver.MongoDB
	kind      string
	toModel   func(E) *M
	fromModel func(*M) E
}

func newCollection[E entity.Record, M any](mdb *mongodriver.MongoDB, kind string, to func(E) *M, from func(*M) E) *collection[E, M] {
	return &collection[E, M]{mdb: mdb, kind: kind, toModel: to, fromModel: from}
}

// field maps an entity column onto its document key.
func field(column string) string {
	if column == entity.ColID {
		return "_id"
	}
	return column
}

func (c *collection[E, M]) List(ctx context.Context, tenantID int64, conds ...entity.Cond) ([]E, error) {
	var models []M
	f := bson.M{entity.ColTenantID: tenantID}
	for _, cond := range conds {
		f[field(cond.Column)] = cond.Value
	}
	err := c.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.kind, err)
	}
	out := make([]E, len(models))
	for i := range models {
		out[i] = c.fromModel(&models[i])
	}
	return out, nil
}

func (c *collection[E, M]) Get(ctx context.Context, tenantID, rowID int64) (E, bool, error) {
	var zero E
	m := new(M)
	err := c.mdb.NewFind(m).
		Filter(bson.M{"_id": rowID, entity.ColTenantID: tenantID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("get %s: %w", c.kind, err)
	}
	return c.fromModel(m), true, nil
}

func (c *collection[E, M]) Insert(ctx context.Context, e E) error {
	if _, err := c.mdb.NewInsert(c.toModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("insert %s: %w", c.kind, err)
	}
	return nil
}

func (c *collection[E, M]) Update(ctx context.Context, e E) error {
	meta := e.Meta()
	res, err := c.mdb.NewUpdate(c.toModel(e)).
		Filter(bson.M{"_id": meta.ID, entity.ColTenantID: meta.TenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update %s: %w", c.kind, err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%s %d: %w", c.kind, meta.ID, errNotFound)
	}
	return nil
}

func (c *collection[E, M]) Delete(ctx context.Context, e E) error {
	meta := e.Meta()
	_, err := c.mdb.NewDelete((*M)(nil)).
		Filter(bson.M{"_id": meta.ID, entity.ColTenantID: meta.TenantID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.kind, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Check log operations
// ──────────────────────────────────────────────────

type checkLogStore struct {
	mdb *mongodriver.MongoDB
}

func checkLogFilter(f *checklog.QueryFilter) bson.M {
	out := bson.M{}
	if f == nil {
		return out
	}
	if f.TenantID != 0 {
		out["tenant_id"] = f.TenantID
	}
	if f.UserID != nil {
		out["user_id"] = *f.UserID
	}
	if f.Action != "" {
		out["action"] = f.Action
	}
	if f.Allowed != nil {
		out["allowed"] = *f.Allowed
	}
	created := bson.M{}
	if f.After != nil {
		created["$gt"] = *f.After
	}
	if f.Before != nil {
		created["$lt"] = *f.Before
	}
	if len(created) > 0 {
		out["created_at"] = created
	}
	return out
}

func (s *checkLogStore) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.mdb.NewInsert(checkLogToModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("gatehouse: create check log: %w", err)
	}
	return nil
}

func (s *checkLogStore) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	var m checkLogModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": logID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("check log %s: %w", logID, errNotFound)
		}
		return nil, fmt.Errorf("gatehouse: get check log: %w", err)
	}
	return checkLogFromModel(&m), nil
}

func (s *checkLogStore) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var models []checkLogModel
	q := s.mdb.NewFind(&models).
		Filter(checkLogFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatehouse: list check logs: %w", err)
	}
	result := make([]*checklog.Entry, len(models))
	for i := range models {
		result[i] = checkLogFromModel(&models[i])
	}
	return result, nil
}

func (s *checkLogStore) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*checkLogModel)(nil)).
		Filter(checkLogFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count check logs: %w", err)
	}
	return count, nil
}

func (s *checkLogStore) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*checkLogModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge check logs: %w", err)
	}
	return res.DeletedCount(), nil
}
