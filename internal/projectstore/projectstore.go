// Package projectstore is the thin project-CRUD surface the matcher
// itself does not own conceptually (SPEC_FULL.md treats project records
// as an external input) but still must persist somewhere for the HTTP
// API's create/re-run/list-matches endpoints to have a project to act on.
package projectstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/opportumatch/matcher/internal/errors"
	"github.com/opportumatch/matcher/pkg/matcher/types"
)

// listSeparator matches the convention types.Program.Metadata() uses for
// flattening string slices, which violations.splitCommaList expects.
const listSeparator = ", "

// Store persists Project records in Postgres, behind the httpapi.ProjectStore
// seam.
type Store struct {
	db *sqlx.DB
}

// NewStore constructs a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type projectRow struct {
	ID          string  `db:"id"`
	Slug        string  `db:"slug"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Stage       string  `db:"stage"`
	Sectors     string  `db:"sectors"`
	Goals       string  `db:"goals"`
	FundingNeed float64 `db:"funding_need"`
}

// CreateProject inserts project and returns its generated id and slug.
func (s *Store) CreateProject(ctx context.Context, project *types.Project) (string, string, error) {
	id := uuid.NewString()
	slug := slugify(project.Name) + "-" + id[:8]

	const query = `
		INSERT INTO projects (id, slug, name, description, stage, sectors, goals, funding_need)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		id, slug, project.Name, project.Description, project.Stage,
		strings.Join(project.Sectors, listSeparator), strings.Join(project.Goals, listSeparator), project.FundingNeed)
	if err != nil {
		return "", "", apperrors.NewDatabaseError("insert_project", err)
	}

	return id, slug, nil
}

// GetProject loads a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*types.Project, string, error) {
	const query = `SELECT id, slug, name, description, stage, sectors, goals, funding_need FROM projects WHERE id = $1`

	var row projectRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, "", apperrors.NewNotFoundError(fmt.Sprintf("project %q", id))
	}

	project := &types.Project{
		ID:          row.ID,
		Slug:        row.Slug,
		Name:        row.Name,
		Description: row.Description,
		Stage:       row.Stage,
		Sectors:     splitList(row.Sectors),
		Goals:       splitList(row.Goals),
		FundingNeed: row.FundingNeed,
	}
	return project, row.Slug, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}
