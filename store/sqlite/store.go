// Package sqlite provides a SQLite gatehouse backend using grove ORM with
// Go-based migrations. It suits single-node deployments and local
// development against a real database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/gatehouse/action"
	"github.com/xraph/gatehouse/checklog"
	"github.com/xraph/gatehouse/datastore"
	"github.com/xraph/gatehouse/entity"
	"github.com/xraph/gatehouse/id"
	"github.com/xraph/gatehouse/permission"
	"github.com/xraph/gatehouse/role"
	"github.com/xraph/gatehouse/user"
)

// Compile-time interface check.
var _ datastore.Driver = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a SQLite gatehouse backend.
type Store struct {
	db   *grove.DB
	sdb *sqlitedriver.SqliteDB

	users             *table[*user.User, userModel]
	roles             *table[*role.Role, roleModel]
	userRoles         *table[*role.UserRole, userRoleModel]
	permissions       *table[*permission.Permission, permissionModel]
	rolePermissions   *table[*permission.RolePermission, rolePermissionModel]
	actionRoles       *table[*action.ActionRole, actionRoleModel]
	actionPermissions *table[*action.ActionPermission, actionPermissionModel]
	checkLogs         *checkLogStore
}

// New creates a new SQLite backend.
func New(db *grove.DB) *Store {
	sdb := sqlitedriver.Unwrap(db)
	return &Store{
		db:                db,
		sdb:              sdb,
		users:             newTable(sdb, "user", userToModel, userFromModel),
		roles:             newTable(sdb, "role", roleToModel, roleFromModel),
		userRoles:         newTable(sdb, "user role", userRoleToModel, userRoleFromModel),
		permissions:       newTable(sdb, "permission", permissionToModel, permissionFromModel),
		rolePermissions:   newTable(sdb, "role permission", rolePermissionToModel, rolePermissionFromModel),
		actionRoles:       newTable(sdb, "action role", actionRoleToModel, actionRoleFromModel),
		actionPermissions: newTable(sdb, "action permission", actionPermissionToModel, actionPermissionFromModel),
		checkLogs:         &checkLogStore{sdb: sdb},
	}
}

// Users returns the user table.
func (s *Store) Users() datastore.Table[*user.User] { return s.users }

// Roles returns the role table.
func (s *Store) Roles() datastore.Table[*role.Role] { return s.roles }

// UserRoles returns the user→role grant table.
func (s *Store) UserRoles() datastore.Table[*role.UserRole] { return s.userRoles }

// Permissions returns the permission table.
func (s *Store) Permissions() datastore.Table[*permission.Permission] { return s.permissions }

// RolePermissions returns the role→permission grant table.
func (s *Store) RolePermissions() datastore.Table[*permission.RolePermission] {
	return s.rolePermissions
}

// ActionRoles returns the action→role grant table.
func (s *Store) ActionRoles() datastore.Table[*action.ActionRole] { return s.actionRoles }

// ActionPermissions returns the action→permission grant table.
func (s *Store) ActionPermissions() datastore.Table[*action.ActionPermission] {
	return s.actionPermissions
}

// CheckLogs returns the check log store.
func (s *Store) CheckLogs() checklog.Store { return s.checkLogs }

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("gatehouse/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gatehouse/sqlite: migration failed: %w", err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Generic table
// ──────────────────────────────────────────────────

// table maps one entity type onto its grove model. Condition columns are
// package constants and double as SQL column names.
type table[E entity.Record, M any] struct {
	sdb      *sqlitedriver.SqliteDB
	kind      string
	toModel   func(E) *M
	fromModel func(*M) E
}

func newTable[E entity.Record, M any](sdb *sqlitedriver.SqliteDB, kind string, to func(E) *M, from func(*M) E) *table[E, M] {
	return &table[E, M]{sdb: sdb, kind: kind, toModel: to, fromModel: from}
}

func (t *table[E, M]) List(ctx context.Context, tenantID int64, conds ...entity.Cond) ([]E, error) {
	var models []M
	q := t.sdb.NewSelect(&models).Where("tenant_id = ?", tenantID)
	for _, c := range conds {
		q = q.Where(c.Column+" = ?", c.Value)
	}
	if err := q.OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.kind, err)
	}
	out := make([]E, len(models))
	for i := range models {
		out[i] = t.fromModel(&models[i])
	}
	return out, nil
}

func (t *table[E, M]) Get(ctx context.Context, tenantID, rowID int64) (E, bool, error) {
	var zero E
	m := new(M)
	err := t.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", rowID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("get %s: %w", t.kind, err)
	}
	return t.fromModel(m), true, nil
}

func (t *table[E, M]) Insert(ctx context.Context, e E) error {
	if _, err := t.sdb.NewInsert(t.toModel(e)).Exec(ctx); err != nil {
		return fmt.Errorf("insert %s: %w", t.kind, err)
	}
	return nil
}

func (t *table[E, M]) Update(ctx context.Context, e E) error {
	if _, err := t.sdb.NewUpdate(t.toModel(e)).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("update %s: %w", t.kind, err)
	}
	return nil
}

func (t *table[E, M]) Delete(ctx context.Context, e E) error {
	m := e.Meta()
	_, err := t.sdb.NewDelete((*M)(nil)).
		Where("tenant_id = ?", m.TenantID).
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.kind, err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Check log operations
// ──────────────────────────────────────────────────

type checkLogStore struct {
	sdb *sqlitedriver.SqliteDB
}

type clause struct {
	expr string
	arg  any
}

// filterClauses translates a check log filter into WHERE clauses, matching
// checklog.QueryFilter.Match.
func filterClauses(f *checklog.QueryFilter) []clause {
	if f == nil {
		return nil
	}
	var out []clause
	if f.TenantID != 0 {
		out = append(out, clause{"tenant_id = ?", f.TenantID})
	}
	if f.UserID != nil {
		out = append(out, clause{"user_id = ?", *f.UserID})
	}
	if f.Action != "" {
		out = append(out, clause{"action = ?", f.Action})
	}
	if f.Allowed != nil {
		out = append(out, clause{"allowed = ?", *f.Allowed})
	}
	if f.After != nil {
		out = append(out, clause{"created_at > ?", *f.After})
	}
	if f.Before != nil {
		out = append(out, clause{"created_at < ?", *f.Before})
	}
	return out
}

func (s *checkLogStore) CreateCheckLog(ctx context.Context, e *checklog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m, err := checkLogToModel(e)
	if err != nil {
		return fmt.Errorf("gatehouse: create check log: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("gatehouse: create check log: %w", err)
	}
	return nil
}

func (s *checkLogStore) GetCheckLog(ctx context.Context, logID id.CheckLogID) (*checklog.Entry, error) {
	m := new(checkLogModel)
	err := s.sdb.NewSelect(m).Where("id = ?", logID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("check log %s: %w", logID, errNotFound)
		}
		return nil, fmt.Errorf("gatehouse: get check log: %w", err)
	}
	return checkLogFromModel(m)
}

func (s *checkLogStore) ListCheckLogs(ctx context.Context, filter *checklog.QueryFilter) ([]*checklog.Entry, error) {
	var models []checkLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	for _, c := range filterClauses(filter) {
		q = q.Where(c.expr, c.arg)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gatehouse: list check logs: %w", err)
	}
	result := make([]*checklog.Entry, len(models))
	for i := range models {
		e, err := checkLogFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *checkLogStore) CountCheckLogs(ctx context.Context, filter *checklog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*checkLogModel)(nil))
	for _, c := range filterClauses(filter) {
		q = q.Where(c.expr, c.arg)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: count check logs: %w", err)
	}
	return count, nil
}

func (s *checkLogStore) PurgeCheckLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*checkLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge check logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gatehouse: purge check logs rows: %w", err)
	}
	return n, nil
}
