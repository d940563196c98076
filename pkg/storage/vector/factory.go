package vector

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Backend selects which VectorStore implementation a factory builds.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

// StoreConfig drives VectorStoreFactory's backend selection.
type StoreConfig struct {
	Backend   Backend
	Table     string
	Dimension int
}

// DefaultStoreConfig returns the in-memory backend, the safe default for
// tests and local development without a database.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:   BackendMemory,
		Table:     "program_vectors",
		Dimension: defaultEmbeddingDimension,
	}
}

// VectorStoreFactory builds a VectorStore from config, using the database
// connection it was given only when the Postgres backend is selected.
type VectorStoreFactory struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewVectorStoreFactory constructs a factory. db may be nil if only the
// memory backend will ever be requested.
func NewVectorStoreFactory(db *sqlx.DB, logger *logrus.Logger) *VectorStoreFactory {
	return &VectorStoreFactory{db: db, logger: logger}
}

// Build constructs the VectorStore named by config.Backend.
func (f *VectorStoreFactory) Build(config StoreConfig) (VectorStore, error) {
	switch config.Backend {
	case "", BackendMemory:
		return NewMemoryVectorStore(f.logger), nil
	case BackendPostgres:
		if f.db == nil {
			return nil, fmt.Errorf("postgres vector backend requested but no database connection was provided")
		}
		return NewPostgresVectorStore(f.db, config.Table, config.Dimension, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported vector store backend: %s", config.Backend)
	}
}
