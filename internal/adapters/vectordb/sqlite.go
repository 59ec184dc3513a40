package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
)

// SQLiteBuilder persists each built index to a SQLite file so ingested
// documents survive a restart for offline inspection. Every build writes
// under a fresh index id; rows for an id are never touched again, which
// preserves the immutable-after-build contract.
type SQLiteBuilder struct {
	db *sql.DB
}

// NewSQLiteBuilder opens (or creates) the snapshot database under dataPath.
func NewSQLiteBuilder(dataPath string) (*SQLiteBuilder, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "indices.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	b := &SQLiteBuilder{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBuilder) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		index_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		source TEXT,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		chunk_offset INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_index_id ON chunks(index_id);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Build writes the embedded chunks under a new index id and returns an
// index that queries them.
func (b *SQLiteBuilder) Build(ctx context.Context, chunks []entities.Chunk) (ports.VectorIndex, error) {
	indexID := uuid.New().String()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, index_id, document_id, source, content, chunk_index, chunk_offset, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embeddingJSON, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("encoding embedding: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			chunk.ID, indexID, chunk.DocumentID, chunk.Source,
			chunk.Content, chunk.Index, chunk.Offset, embeddingJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chunks: %w", err)
	}

	return &SQLiteIndex{db: b.db, indexID: indexID, size: len(chunks)}, nil
}

// Close closes the underlying database.
func (b *SQLiteBuilder) Close() error {
	return b.db.Close()
}

// SQLiteIndex queries one persisted index. Brute-force cosine over the
// index's rows, same as the in-memory variant.
type SQLiteIndex struct {
	db      *sql.DB
	indexID string
	size    int
}

// Query returns the k most similar chunks sorted by descending similarity,
// ties broken by chunk order.
func (idx *SQLiteIndex) Query(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	rows, err := idx.db.QueryContext(ctx, `
		SELECT id, document_id, source, content, chunk_index, chunk_offset, embedding
		FROM chunks WHERE index_id = ? ORDER BY chunk_index
	`, idx.indexID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []entities.QueryResult
	for rows.Next() {
		var chunk entities.Chunk
		var embeddingJSON []byte

		err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Source,
			&chunk.Content, &chunk.Index, &chunk.Offset, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &chunk.Embedding); err != nil {
			continue // skip corrupted embeddings
		}

		results = append(results, entities.QueryResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed chunks.
func (idx *SQLiteIndex) Len() int {
	return idx.size
}
