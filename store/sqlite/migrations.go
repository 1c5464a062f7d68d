package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the recur store (SQLite).
var Migrations = migrate.NewGroup("recur")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_recur_tenants",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_tenants (
    account_id TEXT PRIMARY KEY,
    email      TEXT NOT NULL DEFAULT '',
    tenant_id  TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recur_tenants_tenant_id ON recur_tenants (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_tenants`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_schedules",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_schedules (
    id                    TEXT PRIMARY KEY,
    tenant_id             TEXT NOT NULL,
    owner_account         TEXT NOT NULL,
    amount_per_occurrence TEXT NOT NULL,
    remaining_count       TEXT NOT NULL CHECK (remaining_count <> '0'),
    initial_count         TEXT NOT NULL,
    recipient_account     TEXT NOT NULL,
    recipient_email       TEXT NOT NULL DEFAULT '',
    created_at            TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_recur_schedules_tenant ON recur_schedules (tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_recur_schedules_recipient ON recur_schedules (tenant_id, recipient_account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_schedules`)
				return err
			},
		},
	)
}
