package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	sharederrors "github.com/opportumatch/matcher/pkg/shared/errors"
)

// PostgresVectorStore persists program embeddings in a Postgres table with
// a pgvector "vector" column, using the <=> cosine-distance operator for
// similarity search.
type PostgresVectorStore struct {
	db        *sqlx.DB
	table     string
	dimension int
	logger    *logrus.Logger
	retrier   *Retrier
}

// NewPostgresVectorStore constructs a PostgresVectorStore against table,
// assuming embeddings of the given dimension.
func NewPostgresVectorStore(db *sqlx.DB, table string, dimension int, logger *logrus.Logger) *PostgresVectorStore {
	if table == "" {
		table = "program_vectors"
	}
	return &PostgresVectorStore{
		db:        db,
		table:     table,
		dimension: dimension,
		logger:    logger,
		retrier:   NewDatabaseRetrier(),
	}
}

// pgvectorLiteral renders a float64 slice as pgvector's "[v1,v2,...]" text
// input format.
func pgvectorLiteral(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

type vectorRow struct {
	ID        string `db:"id"`
	Text      string `db:"text"`
	Embedding string `db:"embedding"`
	Metadata  []byte `db:"metadata"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// Upsert inserts v, or replaces it if a row with the same ID already
// exists, preserving the original created_at.
func (s *PostgresVectorStore) Upsert(ctx context.Context, v *ProgramVector) error {
	if v.ID == "" {
		return fmt.Errorf("vector ID cannot be empty")
	}
	if len(v.Embedding) == 0 {
		return fmt.Errorf("vector embedding cannot be empty")
	}

	metadata, err := json.Marshal(v.Metadata)
	if err != nil {
		return sharederrors.Wrapf(err, "failed to marshal vector metadata for %s", v.ID)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, text, embedding, metadata, created_at, updated_at)
		VALUES ($1, $2, $3::vector, $4, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()
	`, s.table)

	return s.retrier.Execute(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, v.ID, v.Text, pgvectorLiteral(v.Embedding), metadata)
		if err != nil {
			return sharederrors.Wrapf(err, "failed to upsert vector %s into %s", v.ID, s.table)
		}
		return nil
	})
}

// Get returns the stored vector for id, or nil if it does not exist.
func (s *PostgresVectorStore) Get(ctx context.Context, id string) (*ProgramVector, error) {
	query := fmt.Sprintf(`
		SELECT id, text, embedding::text AS embedding, metadata, created_at, updated_at
		FROM %s WHERE id = $1
	`, s.table)

	var row vectorRow
	var fetchErr error
	err := s.retrier.Execute(ctx, func() error {
		fetchErr = s.db.GetContext(ctx, &row, query, id)
		if fetchErr != nil && !IsRetryableError(fetchErr) {
			return nil
		}
		return fetchErr
	})
	if err != nil {
		return nil, sharederrors.Wrapf(err, "failed to fetch vector %s from %s", id, s.table)
	}
	if fetchErr != nil {
		if isNoRowsErr(fetchErr) {
			return nil, nil
		}
		return nil, sharederrors.Wrapf(fetchErr, "failed to fetch vector %s from %s", id, s.table)
	}

	return rowToVector(row)
}

// Count returns the number of stored vectors.
func (s *PostgresVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)
	err := s.retrier.Execute(ctx, func() error {
		return s.db.GetContext(ctx, &n, query)
	})
	if err != nil {
		return 0, sharederrors.Wrapf(err, "failed to count vectors in %s", s.table)
	}
	return n, nil
}

// Search returns the rows closest to query.QueryVector by cosine distance.
func (s *PostgresVectorStore) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	sql := fmt.Sprintf(`
		SELECT id, text, embedding::text AS embedding, metadata, created_at, updated_at,
			embedding <=> $1::vector AS distance
		FROM %s
	`, s.table)

	args := []interface{}{pgvectorLiteral(query.QueryVector)}
	if query.Threshold > 0 {
		sql += fmt.Sprintf(" WHERE embedding <=> $1::vector <= $%d", len(args)+1)
		args = append(args, query.Threshold)
	}
	sql += " ORDER BY distance ASC"
	if query.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", query.Limit)
	}

	type scannedRow struct {
		vectorRow
		Distance float64 `db:"distance"`
	}

	var rows []scannedRow
	err := s.retrier.Execute(ctx, func() error {
		rows = nil
		return s.db.SelectContext(ctx, &rows, sql, args...)
	})
	if err != nil {
		return nil, sharederrors.Wrapf(err, "failed to search vectors in %s", s.table)
	}

	results := make([]SearchResult, 0, len(rows))
	for i, r := range rows {
		v, err := rowToVector(r.vectorRow)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Vector: v, Distance: r.Distance, Rank: i + 1})
	}
	return results, nil
}

func rowToVector(row vectorRow) (*ProgramVector, error) {
	embedding, err := parsePgvectorLiteral(row.Embedding)
	if err != nil {
		return nil, sharederrors.Wrapf(err, "failed to parse embedding for vector %s", row.ID)
	}

	var metadata map[string]interface{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return nil, sharederrors.Wrapf(err, "failed to unmarshal metadata for vector %s", row.ID)
		}
	}

	createdAt, _ := parseTimestamp(row.CreatedAt)
	updatedAt, _ := parseTimestamp(row.UpdatedAt)

	return &ProgramVector{
		ID:        row.ID,
		Text:      row.Text,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// parsePgvectorLiteral parses pgvector's "[v1,v2,...]" text representation.
func parsePgvectorLiteral(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &f); err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}
