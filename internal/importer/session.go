package importer

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// sessionState captures the server-side settings we override for the
// duration of an import so they can be restored afterwards.
type sessionState struct {
	workMem            string
	maintenanceWorkMem string
	statementTimeout   string
	synchronousCommit  string
	triggersDisabled   bool
}

// optimizeSession applies the tuning profile's session settings on conn
// and, when the profile asks for it, disables triggers on the target
// table. The settings and the trigger toggle run in one transaction; a
// failure rolls everything back (a plain SET reverts on rollback), so
// the connection never returns to the pool half-tuned. The previous
// values are returned for restoreSession.
func optimizeSession(ctx context.Context, conn pgload.Conn, profile *pgload.TuningProfile, schema, table string) (*sessionState, error) {
	prev := &sessionState{}
	row := conn.QueryRow(ctx,
		"SELECT current_setting('work_mem'), current_setting('maintenance_work_mem'), current_setting('statement_timeout'), current_setting('synchronous_commit')")
	if err := row.Scan(&prev.workMem, &prev.maintenanceWorkMem, &prev.statementTimeout, &prev.synchronousCommit); err != nil {
		return nil, fmt.Errorf("failed to read session settings: %w", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin optimization transaction: %w", err)
	}

	settings := []string{
		fmt.Sprintf("SET work_mem = '%dMB'", profile.WorkMemMB),
		fmt.Sprintf("SET maintenance_work_mem = '%dMB'", profile.MaintenanceWorkMemMB),
		fmt.Sprintf("SET statement_timeout = '%s'", profile.StatementTimeout),
		"SET synchronous_commit = OFF",
	}
	for _, stmt := range settings {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to apply session setting %q: %w", stmt, err)
		}
	}

	if profile.DisableTriggers {
		stmt := fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER ALL", qualifiedTable(schema, table))
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("failed to disable triggers on %s: %w", table, err)
		}
		prev.triggersDisabled = true
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit session optimization: %w", err)
	}
	return prev, nil
}

// applySessionSettings applies the per-connection subset of the tuning
// profile. Worker connections call this; the trigger toggle and the
// maintenance pass stay on the job's coordinating connection, and the
// statement timeout is set per file regardless of tuning.
func applySessionSettings(ctx context.Context, conn pgload.Conn, profile *pgload.TuningProfile) error {
	settings := []string{
		fmt.Sprintf("SET work_mem = '%dMB'", profile.WorkMemMB),
		"SET synchronous_commit = OFF",
	}
	for _, stmt := range settings {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply session setting %q: %w", stmt, err)
		}
	}
	return nil
}

// restoreSession undoes optimizeSession: triggers first, then the saved
// settings, then the profile's maintenance commands. VACUUM cannot run
// inside a transaction block, so everything here uses plain Exec.
func restoreSession(ctx context.Context, conn pgload.Conn, prev *sessionState, profile *pgload.TuningProfile, schema, table string, logger pgload.Logger) error {
	if prev.triggersDisabled {
		stmt := fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER ALL", qualifiedTable(schema, table))
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to re-enable triggers on %s: %w", table, err)
		}
	}

	settings := []string{
		fmt.Sprintf("SET work_mem = '%s'", prev.workMem),
		fmt.Sprintf("SET maintenance_work_mem = '%s'", prev.maintenanceWorkMem),
		fmt.Sprintf("SET statement_timeout = '%s'", prev.statementTimeout),
		fmt.Sprintf("SET synchronous_commit = %s", prev.synchronousCommit),
	}
	for _, stmt := range settings {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to restore session setting %q: %w", stmt, err)
		}
	}

	target := qualifiedTable(schema, table)
	if profile.RunVacuum {
		logger.Info("Running VACUUM on %s", target)
		if _, err := conn.Exec(ctx, "VACUUM "+target); err != nil {
			return fmt.Errorf("vacuum failed on %s: %w", table, err)
		}
	}
	if profile.RunAnalyze {
		logger.Verbose("Running ANALYZE on %s", target)
		if _, err := conn.Exec(ctx, "ANALYZE "+target); err != nil {
			return fmt.Errorf("analyze failed on %s: %w", table, err)
		}
	}
	return nil
}
