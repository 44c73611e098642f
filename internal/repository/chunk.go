package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/silkworks-ai/docrag/internal/domain"
	"github.com/silkworks-ai/docrag/internal/service"
)

// DefaultInsertBatchSize bounds how many rows are sent per insert batch.
const DefaultInsertBatchSize = 100

// ChunkRepository persists embedded passages and performs filtered
// nearest-neighbor search over them.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// InsertChunks appends records in sequential batches. There is no dedup key:
// re-inserting the same passage creates a duplicate row, and a failure in a
// later batch leaves earlier batches committed.
func (r *ChunkRepository) InsertChunks(ctx context.Context, records []domain.StoredChunk, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}

	const insertSQL = `
		INSERT INTO doc_chunks
			(content, embedding, source_url, source_type, section, title, version, token_count, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		now := time.Now().UTC()
		for _, rec := range records[start:end] {
			batch.Queue(insertSQL,
				rec.Content,
				pgvector.NewVector(rec.Embedding),
				rec.Metadata.SourceURL,
				string(rec.Metadata.SourceType),
				rec.Metadata.Section,
				rec.Metadata.Title,
				rec.Metadata.Version,
				rec.TokenCount,
				now,
			)
		}

		if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert chunks %d-%d: %w", start, end-1, err)
		}
	}

	return nil
}

// Search returns up to topK chunks whose similarity (1 - cosine distance)
// strictly exceeds threshold, ordered by descending similarity.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float32, filters service.SearchFilters, topK int, threshold float64) ([]domain.ScoredChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT content, source_url, source_type, section, title, version, token_count,
		       1 - (embedding <=> $1) AS similarity
		FROM doc_chunks
		WHERE 1 - (embedding <=> $1) > $2`
	args := []interface{}{vec, threshold}

	if len(filters.SourceTypes) > 0 {
		types := make([]string, len(filters.SourceTypes))
		for i, st := range filters.SourceTypes {
			types[i] = string(st)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND source_type = ANY($%d)", len(args))
	}

	if len(filters.Sections) > 0 {
		args = append(args, filters.Sections)
		query += fmt.Sprintf(" AND section = ANY($%d)", len(args))
	}

	args = append(args, topK)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, topK)
	for rows.Next() {
		var sc domain.ScoredChunk
		var sourceType string
		if err := rows.Scan(
			&sc.Content,
			&sc.Metadata.SourceURL,
			&sourceType,
			&sc.Metadata.Section,
			&sc.Metadata.Title,
			&sc.Metadata.Version,
			&sc.TokenCount,
			&sc.Similarity,
		); err != nil {
			return nil, err
		}
		sc.Metadata.SourceType = domain.SourceType(sourceType)
		results = append(results, sc)
	}

	return results, rows.Err()
}

// ClearBySourceType deletes all chunks of one source type, returning the
// number of rows removed. Used by the refresh workflow before re-insert.
func (r *ChunkRepository) ClearBySourceType(ctx context.Context, sourceType domain.SourceType) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM doc_chunks WHERE source_type = $1`, string(sourceType))
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// ClearAll deletes every chunk.
func (r *ChunkRepository) ClearAll(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM doc_chunks`)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// CountBySourceType reports how many chunks each source type holds.
func (r *ChunkRepository) CountBySourceType(ctx context.Context) (map[domain.SourceType]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT source_type, COUNT(*) FROM doc_chunks GROUP BY source_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SourceType]int64)
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[domain.SourceType(st)] = n
	}

	return counts, rows.Err()
}
