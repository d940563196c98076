// Package persist upserts a run's ranked results into the match_results
// table, keyed by (project_id, project_slug, run_at, rank), with a
// graceful retry against a required-column subset when the backing
// schema is missing an optional column.
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/types"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
)

// DefaultTable is the results table name used when none is configured.
const DefaultTable = "match_results"

// undefinedColumnCode is Postgres's SQLSTATE for "column does not exist".
const undefinedColumnCode = "42703"

// conflictKeyColumns form the upsert's ON CONFLICT target; they are never
// included in a DO UPDATE SET clause.
var conflictKeyColumns = map[string]bool{
	"project_id": true, "project_slug": true, "run_at": true, "rank": true,
}

// fullColumns lists every MatchRun column the upsert writes when the
// schema carries every optional field.
var fullColumns = []string{
	"project_id", "project_slug", "program_id", "program_name", "source_url",
	"rank", "run_at",
	"score_rule", "score_content", "score_goal", "score_final_raw", "score_final_cal",
	"raw_distance",
	"subs_sector", "subs_stage", "subs_funding",
	"reasons", "improvements", "evidence_project", "evidence_program",
}

// Persister upserts MatchRun rows and verifies what was actually stored.
type Persister struct {
	db     *sqlx.DB
	table  string
	logger *logrus.Logger
}

// NewPersister constructs a Persister. table defaults to DefaultTable.
func NewPersister(db *sqlx.DB, table string, logger *logrus.Logger) *Persister {
	if table == "" {
		table = DefaultTable
	}
	return &Persister{db: db, table: table, logger: logger}
}

// Persist upserts rows, retrying once against types.RequiredColumns if the
// schema is missing an optional column, then verifies by reading back the
// count actually stored for (project_id, run_at). That verified count,
// not len(rows), is the authoritative inserted count.
func (p *Persister) Persist(ctx context.Context, rows []types.MatchRun) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if err := p.upsertAll(ctx, rows, fullColumns); err != nil {
		if !isUndefinedColumn(err) {
			return 0, fmt.Errorf("failed to persist match results: %w", err)
		}
		if p.logger != nil {
			p.logger.WithFields(sharedlogging.NewFields().
				Component("persist").
				Operation("persist").
				Error(err).
				ToLogrus()).Warn("retrying persistence with the required column subset")
		}
		if err := p.upsertAll(ctx, rows, types.RequiredColumns); err != nil {
			return 0, fmt.Errorf("failed to persist match results with the required column subset: %w", err)
		}
	}

	return p.verifyCount(ctx, rows[0].ProjectID, rows[0].RunAt)
}

func (p *Persister) upsertAll(ctx context.Context, rows []types.MatchRun, columns []string) error {
	query := buildUpsertSQL(p.table, columns)

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin persistence transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range rows {
		if _, err := tx.NamedExecContext(ctx, query, rows[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LatestMatches returns the persisted rows for project's most recent run,
// ordered by rank ascending, capped at limit.
func (p *Persister) LatestMatches(ctx context.Context, projectID string, limit int) ([]types.MatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT * FROM %s
		WHERE project_id = $1 AND run_at = (
			SELECT run_at FROM %s WHERE project_id = $1 ORDER BY run_at DESC LIMIT 1
		)
		ORDER BY rank ASC
		LIMIT $2`, p.table, p.table)

	var rows []types.MatchRun
	if err := p.db.SelectContext(ctx, &rows, query, projectID, limit); err != nil {
		return nil, fmt.Errorf("failed to read latest matches: %w", err)
	}
	return rows, nil
}

func (p *Persister) verifyCount(ctx context.Context, projectID string, runAt interface{}) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE project_id = $1 AND run_at = $2", p.table)
	if err := p.db.GetContext(ctx, &count, query, projectID, runAt); err != nil {
		return 0, fmt.Errorf("failed to verify persisted row count: %w", err)
	}
	return count, nil
}

// buildUpsertSQL renders an upsert statement over exactly columns, keyed
// on (project_id, project_slug, run_at, rank).
func buildUpsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	var setClauses []string
	for i, col := range columns {
		placeholders[i] = ":" + col
		if !conflictKeyColumns[col] {
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (project_id, project_slug, run_at, rank) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(setClauses, ", "),
	)
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedColumnCode
	}
	return false
}
