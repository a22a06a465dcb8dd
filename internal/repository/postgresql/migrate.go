package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type Scheme struct {
	Index       int
	Description string
	Query       string
}

var scheme = []Scheme{
	{
		Index:       1,
		Description: "Create table: users",
		Query: `
		CREATE TABLE IF NOT EXISTS users (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name         TEXT NOT NULL,
			email        TEXT NOT NULL UNIQUE,
			role         TEXT NOT NULL CHECK (role IN ('employee', 'manager', 'admin')),
			joining_date DATE NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Index:       2,
		Description: "Create table: attendances",
		Query: `
		CREATE TABLE IF NOT EXISTS attendances (
			id                        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id                   UUID NOT NULL REFERENCES users(id),
			attendance_date           DATE NOT NULL,
			timezone                  TEXT NOT NULL,
			work_location             TEXT NOT NULL CHECK (work_location IN ('Onsite', 'Remote')),
			latitude                  DOUBLE PRECISION,
			longitude                 DOUBLE PRECISION,
			site_id                   TEXT,
			clock_in                  TIMESTAMPTZ NOT NULL,
			clock_out                 TIMESTAMPTZ,
			tasks_done                TEXT,
			hours_worked              NUMERIC(5,2),
			status                    TEXT NOT NULL,
			approval_state            TEXT NOT NULL DEFAULT 'Pending',
			requires_manager_approval BOOLEAN NOT NULL,
			manager_approved_by       UUID REFERENCES users(id),
			manager_comment           TEXT,
			admin_approved_by         UUID REFERENCES users(id),
			admin_comment             TEXT,
			created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, attendance_date)
		);
		CREATE INDEX IF NOT EXISTS idx_attendances_open ON attendances (user_id) WHERE clock_out IS NULL;
		CREATE INDEX IF NOT EXISTS idx_attendances_approval ON attendances (approval_state, clock_out);`,
	},
	{
		Index:       3,
		Description: "Create table: leave_policies",
		Query: `
		CREATE TABLE IF NOT EXISTS leave_policies (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name             TEXT NOT NULL,
			description      TEXT,
			leave_types      JSONB NOT NULL DEFAULT '[]',
			applicable_roles TEXT[] NOT NULL DEFAULT '{employee,manager}',
			is_active        BOOLEAN NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		Index:       4,
		Description: "Create tables: user_leave_profiles, user_leave_balances",
		Query: `
		CREATE TABLE IF NOT EXISTS user_leave_profiles (
			user_id                  UUID PRIMARY KEY REFERENCES users(id),
			joining_date             DATE NOT NULL,
			leave_policy_id          UUID REFERENCES leave_policies(id) ON DELETE RESTRICT,
			last_leave_balance_reset DATE,
			created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_leave_balances (
			user_id    UUID NOT NULL REFERENCES user_leave_profiles(user_id) ON DELETE CASCADE,
			leave_type TEXT NOT NULL,
			balance    NUMERIC(6,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			used       NUMERIC(6,2) NOT NULL DEFAULT 0,
			position   INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, leave_type)
		);`,
	},
	{
		Index:       5,
		Description: "Create table: leave_requests",
		Query: `
		CREATE TABLE IF NOT EXISTS leave_requests (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id           UUID NOT NULL REFERENCES users(id),
			leave_type        TEXT NOT NULL,
			start_date        DATE NOT NULL,
			end_date          DATE NOT NULL CHECK (end_date >= start_date),
			total_days        NUMERIC(6,2) NOT NULL,
			reason            TEXT NOT NULL,
			is_paid           BOOLEAN NOT NULL DEFAULT FALSE,
			use_leave_balance BOOLEAN NOT NULL DEFAULT FALSE,
			documents         TEXT[] NOT NULL DEFAULT '{}',
			status            TEXT NOT NULL DEFAULT 'Pending',
			applied_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			approved_by       UUID REFERENCES users(id),
			approval_comment  TEXT,
			actioned_at       TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_leave_requests_user ON leave_requests (user_id, status);`,
	},
	{
		Index:       6,
		Description: "Create table: leave_reset_histories",
		Query: `
		CREATE TABLE IF NOT EXISTS leave_reset_histories (
			id                    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			performed_by          UUID REFERENCES users(id),
			is_automated          BOOLEAN NOT NULL DEFAULT FALSE,
			reset_date            DATE NOT NULL,
			carry_forward_applied BOOLEAN NOT NULL DEFAULT FALSE,
			summary               JSONB NOT NULL,
			target_users          TEXT[] NOT NULL DEFAULT '{}',
			failure_details       JSONB NOT NULL DEFAULT '[]',
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
}

// Migrate applies every scheme entry newer than the recorded schema version.
// Each entry runs in its own transaction together with the version bump.
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	err := db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, s := range scheme {
		if s.Index <= version {
			continue
		}

		err := WithTransaction(ctx, db, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, s.Query); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, s.Index)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", s.Index, s.Description, err)
		}

		slog.Info("migration applied", "version", s.Index, "description", s.Description)
	}

	return nil
}
