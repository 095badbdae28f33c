package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the gatehouse store (PostgreSQL).
//
// Name uniqueness is enforced by partial indexes over live rows, so a
// soft-deleted role or permission frees its name for reuse.
var Migrations = migrate.NewGroup("gatehouse")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_users",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_users (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    username        TEXT NOT NULL,
    password_hash   TEXT NOT NULL DEFAULT '',
    logged_in       BOOLEAN NOT NULL DEFAULT FALSE,
    last_log_out    TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_users_name
    ON gatehouse_users (tenant_id, username) WHERE is_deleted = FALSE;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_roles",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_roles (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    name            TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_roles_name
    ON gatehouse_roles (tenant_id, name) WHERE is_deleted = FALSE;

CREATE TABLE IF NOT EXISTS gatehouse_user_roles (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    user_id         BIGINT NOT NULL,
    role_id         BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_user_roles
    ON gatehouse_user_roles (tenant_id, user_id, role_id) WHERE is_deleted = FALSE;
CREATE INDEX IF NOT EXISTS idx_gatehouse_user_roles_role ON gatehouse_user_roles (tenant_id, role_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS gatehouse_user_roles;
DROP TABLE IF EXISTS gatehouse_roles;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_permissions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_permissions (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    name            TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_permissions_name
    ON gatehouse_permissions (tenant_id, name) WHERE is_deleted = FALSE;

CREATE TABLE IF NOT EXISTS gatehouse_role_permissions (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    role_id         BIGINT NOT NULL,
    permission_id   BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_role_permissions
    ON gatehouse_role_permissions (tenant_id, role_id, permission_id) WHERE is_deleted = FALSE;
CREATE INDEX IF NOT EXISTS idx_gatehouse_role_perms_perm ON gatehouse_role_permissions (tenant_id, permission_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS gatehouse_role_permissions;
DROP TABLE IF EXISTS gatehouse_permissions;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_action_grants",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_action_roles (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    action_name     TEXT NOT NULL,
    role_id         BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_action_roles
    ON gatehouse_action_roles (tenant_id, action_name, role_id) WHERE is_deleted = FALSE;

CREATE TABLE IF NOT EXISTS gatehouse_action_permissions (
    id              BIGINT PRIMARY KEY,
    tenant_id       BIGINT NOT NULL,
    action_name     TEXT NOT NULL,
    permission_id   BIGINT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    modified_at     TIMESTAMPTZ,
    is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
    deleted_at      TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_gatehouse_action_permissions
    ON gatehouse_action_permissions (tenant_id, action_name, permission_id) WHERE is_deleted = FALSE;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS gatehouse_action_permissions;
DROP TABLE IF EXISTS gatehouse_action_roles;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_check_logs",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gatehouse_check_logs (
    id                  TEXT PRIMARY KEY,
    tenant_id           BIGINT NOT NULL,
    user_id             BIGINT NOT NULL DEFAULT 0,
    username            TEXT NOT NULL DEFAULT '',
    action              TEXT NOT NULL,
    allowed             BOOLEAN NOT NULL,
    require             TEXT NOT NULL DEFAULT '',
    missing_roles       JSONB NOT NULL DEFAULT '[]',
    missing_permissions JSONB NOT NULL DEFAULT '[]',
    eval_time_ns        BIGINT NOT NULL DEFAULT 0,
    request_ip          TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gatehouse_check_logs_tenant ON gatehouse_check_logs (tenant_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_gatehouse_check_logs_user ON gatehouse_check_logs (tenant_id, user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gatehouse_check_logs`)
				return err
			},
		},
	)
}
