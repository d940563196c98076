// Package index builds the program vector index from a directory of
// source documents: extract (C1) each one into a structured Program,
// assign it a collision-free slug, embed its index text, and upsert it
// into the vector store.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/extractor"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
	"github.com/opportumatch/matcher/pkg/storage/vector"
)

// SourceDocument is one Markdown file queued for extraction.
type SourceDocument struct {
	Path     string
	Markdown string
}

// SkippedDocument records a document the builder could not embed or
// upsert; extraction failures are never fatal (the extractor falls back
// on its own), but an embedding or store error means that one document
// contributes nothing to the index.
type SkippedDocument struct {
	Path string
	Err  error
}

// BuildResult summarizes one batch build.
type BuildResult struct {
	Programs []*types.Program
	Inserted int
	Skipped  []SkippedDocument
}

// Builder materializes documents into structured Program records and a
// populated vector index.
type Builder struct {
	extractor *extractor.Extractor
	embedder  vector.EmbeddingService
	store     vector.VectorStore
	outputDir string
	logger    *logrus.Logger
}

// NewBuilder constructs a Builder. outputDir may be empty, in which case
// extracted JSON is not materialized to disk (only the vector store is
// populated).
func NewBuilder(ext *extractor.Extractor, embedder vector.EmbeddingService, store vector.VectorStore, outputDir string, logger *logrus.Logger) *Builder {
	return &Builder{extractor: ext, embedder: embedder, store: store, outputDir: outputDir, logger: logger}
}

// Build runs the full extract -> slug -> embed -> upsert pipeline over
// docs. Running it twice against the same documents (and the same,
// already-populated store) yields the same slugs and embeddings: slug
// collisions are resolved against both this batch and the store's
// existing entries.
func (b *Builder) Build(ctx context.Context, docs []SourceDocument) (*BuildResult, error) {
	if b.outputDir != "" {
		if err := os.MkdirAll(b.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", b.outputDir, err)
		}
	}

	result := &BuildResult{}
	taken := make(map[string]bool, len(docs))

	for _, doc := range docs {
		program, err := b.extractor.Extract(ctx, doc.Path, doc.Markdown)
		if err != nil {
			return nil, fmt.Errorf("extraction aborted at %s: %w", doc.Path, err)
		}

		slug, err := b.uniqueSlug(ctx, program.ID, taken)
		if err != nil {
			b.skip(result, doc.Path, err)
			continue
		}
		program.ID = slug

		if err := b.embedAndStore(ctx, program); err != nil {
			b.skip(result, doc.Path, err)
			continue
		}

		if b.outputDir != "" {
			if err := b.writeJSON(program); err != nil {
				b.skip(result, doc.Path, err)
				continue
			}
		}

		result.Programs = append(result.Programs, program)
		result.Inserted++
	}

	return result, nil
}

// uniqueSlug resolves base against taken (this batch) and the store (any
// prior build), appending -2, -3, ... until it finds a free slug.
func (b *Builder) uniqueSlug(ctx context.Context, base string, taken map[string]bool) (string, error) {
	if base == "" {
		base = "program"
	}
	slug := base
	for n := 2; ; n++ {
		if !taken[slug] {
			if b.store == nil {
				break
			}
			existing, err := b.store.Get(ctx, slug)
			if err != nil {
				return "", fmt.Errorf("failed to check slug %q against the index: %w", slug, err)
			}
			if existing == nil {
				break
			}
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	taken[slug] = true
	return slug, nil
}

func (b *Builder) embedAndStore(ctx context.Context, program *types.Program) error {
	text := program.IndexText()
	vec, err := b.embedder.GenerateTextEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed program %s: %w", program.ID, err)
	}
	return b.store.Upsert(ctx, &vector.ProgramVector{
		ID:        program.ID,
		Text:      text,
		Embedding: vec,
		Metadata:  program.Metadata(),
	})
}

func (b *Builder) writeJSON(program *types.Program) error {
	raw, err := json.MarshalIndent(program, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal program %s: %w", program.ID, err)
	}
	path := filepath.Join(b.outputDir, program.ID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (b *Builder) skip(result *BuildResult, path string, err error) {
	result.Skipped = append(result.Skipped, SkippedDocument{Path: path, Err: err})
	if b.logger != nil {
		b.logger.WithFields(sharedlogging.NewFields().
			Component("index").
			Operation("build").
			Resource("document", path).
			Error(err).
			ToLogrus()).Warn("skipping document in index build")
	}
}
