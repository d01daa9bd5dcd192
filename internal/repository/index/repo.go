package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/internal/db"
	"github.com/finsight-ai/finsight/internal/domain"
)

// store is the consumer interface for index search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo reads the filing-chunk index. It implements both the dense and
// sparse ranker contracts of usecase/retrieval.
type Repo struct {
	store     store
	indexName string
	keyPrefix string
}

// New creates an index repository.
func New(s store, indexName, keyPrefix string) *Repo {
	return &Repo{store: s, indexName: indexName, keyPrefix: keyPrefix}
}

var chunkFields = []string{"content", "document", "section"}

// denseFields additionally requests the KNN distance so dense entries
// carry a similarity score.
var denseFields = append([]string{"__vector_score"}, chunkFields...)

// SearchDense performs vector similarity search over filing chunks.
// Returned chunks are ordered by descending similarity.
func (r *Repo) SearchDense(ctx context.Context, vector []float32, filters domain.Filters, k int) ([]domain.Chunk, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Prefilter:    buildPrefilter(filters),
		Vector:       vector,
		K:            k,
		ReturnFields: denseFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	return r.parseEntries(sr, domain.OriginDense), nil
}

// SearchSparse performs BM25 keyword search over filing chunks.
func (r *Repo) SearchSparse(ctx context.Context, query string, filters domain.Filters, k int) ([]domain.Chunk, error) {
	q := &db.TextQuery{
		IndexName:    r.indexName,
		Query:        query,
		Prefilter:    buildPrefilter(filters),
		TopK:         k,
		ReturnFields: chunkFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sparse search: %w", err)
	}

	return r.parseEntries(sr, domain.OriginSparse), nil
}

func (r *Repo) parseEntries(sr *db.SearchResult, origin domain.Origin) []domain.Chunk {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.keyPrefix)
		chunks = append(chunks, domain.NewChunk(
			id,
			entry.Fields["document"],
			entry.Fields["section"],
			entry.Fields["content"],
			entry.Score,
			origin,
		))
	}
	return chunks
}

// buildPrefilter renders domain filters as a RediSearch TAG pre-filter.
func buildPrefilter(f domain.Filters) string {
	if f.IsEmpty() {
		return ""
	}

	var parts []string
	if f.Company != "" {
		parts = append(parts, fmt.Sprintf("@company:{%s}", escapeTag(f.Company)))
	}
	if f.FilingType != "" {
		parts = append(parts, fmt.Sprintf("@filing_type:{%s}", escapeTag(f.FilingType)))
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	`-`, `\-`,
	`.`, `\.`,
	` `, `\ `,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
)

func escapeTag(s string) string {
	return tagEscaper.Replace(s)
}
