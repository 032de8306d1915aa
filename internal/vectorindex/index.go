package vectorindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

const (
	metaEmbeddingModel = "embedding_model"
	metaEmbeddingDim   = "embedding_dim"
)

// ErrInvalidTopK indicates a non-positive result count was requested.
var ErrInvalidTopK = errors.New("top-k must be positive")

// FingerprintMismatchError indicates the index was built with a different
// embedding model or dimensionality than the one now configured.
type FingerprintMismatchError struct {
	StoredModel string
	StoredDim   int
	Model       string
	Dim         int
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("index was built with %s (%d dims) but provider is %s (%d dims); re-ingest or switch models",
		e.StoredModel, e.StoredDim, e.Model, e.Dim)
}

// Document identifies one ingested source document.
type Document struct {
	ID         string
	Filename   string
	UploadedAt time.Time
}

// Chunk is one embedded slice of a document.
type Chunk struct {
	Seq       int
	Content   string
	Embedding []float32
}

// Match is a single search result.
type Match struct {
	DocumentID string
	Filename   string
	Seq        int
	Content    string
	Score      float32
}

// DocumentInfo describes an ingested document and its chunk count.
type DocumentInfo struct {
	ID         string
	Filename   string
	UploadedAt time.Time
	ChunkCount int
}

// Stats summarizes index contents. All values are derived from the tables on
// demand rather than kept as counters.
type Stats struct {
	Documents      int
	Chunks         int
	EmbeddingModel string
	Dimension      int
}

// Index stores document chunks and their embeddings in SQLite and serves
// brute-force cosine-similarity search over them.
type Index struct {
	db *sql.DB

	// one mutex per document id so concurrent ingests of different
	// documents do not serialize against each other
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wraps an open database handle. The schema is created if missing.
func New(ctx context.Context, db *sql.DB) (*Index, error) {
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Index{
		db:    db,
		locks: map[string]*sync.Mutex{},
	}, nil
}

func (ix *Index) docLock(documentID string) *sync.Mutex {
	ix.locksMu.Lock()
	defer ix.locksMu.Unlock()
	mu, ok := ix.locks[documentID]
	if !ok {
		mu = &sync.Mutex{}
		ix.locks[documentID] = mu
	}
	return mu
}

// EnsureFingerprint records the embedding model identity on first use and
// rejects any later use of the index with a different model or
// dimensionality.
func (ix *Index) EnsureFingerprint(ctx context.Context, model string, dim int) error {
	storedModel, err := ix.metaValue(ctx, metaEmbeddingModel)
	if err != nil {
		return err
	}
	storedDimRaw, err := ix.metaValue(ctx, metaEmbeddingDim)
	if err != nil {
		return err
	}

	if storedModel == "" && storedDimRaw == "" {
		tx, err := ix.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin fingerprint tx: %w", err)
		}
		defer tx.Rollback()
		for key, value := range map[string]string{
			metaEmbeddingModel: model,
			metaEmbeddingDim:   strconv.Itoa(dim),
		} {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO index_meta (key, value) VALUES (?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
				key, value); err != nil {
				return fmt.Errorf("store fingerprint: %w", err)
			}
		}
		return tx.Commit()
	}

	storedDim, _ := strconv.Atoi(storedDimRaw)
	if storedModel != model || storedDim != dim {
		return &FingerprintMismatchError{
			StoredModel: storedModel,
			StoredDim:   storedDim,
			Model:       model,
			Dim:         dim,
		}
	}
	return nil
}

// CheckFingerprint verifies the configured embedding model against the
// recorded fingerprint without updating it. A dim of 0 means the provider
// does not know its dimensionality until its first call; only the model id
// is compared then. An index with no recorded fingerprint passes.
func (ix *Index) CheckFingerprint(ctx context.Context, model string, dim int) error {
	storedModel, err := ix.metaValue(ctx, metaEmbeddingModel)
	if err != nil {
		return err
	}
	storedDimRaw, err := ix.metaValue(ctx, metaEmbeddingDim)
	if err != nil {
		return err
	}
	if storedModel == "" && storedDimRaw == "" {
		return nil
	}

	storedDim, _ := strconv.Atoi(storedDimRaw)
	if storedModel != model || (dim > 0 && storedDim != dim) {
		return &FingerprintMismatchError{
			StoredModel: storedModel,
			StoredDim:   storedDim,
			Model:       model,
			Dim:         dim,
		}
	}
	return nil
}

func (ix *Index) metaValue(ctx context.Context, key string) (string, error) {
	var value string
	err := ix.db.QueryRowContext(ctx,
		`SELECT value FROM index_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index meta %q: %w", key, err)
	}
	return value, nil
}

// Insert stores a document and all of its chunks in a single transaction.
// Re-inserting a document id replaces its previous chunks. Concurrent
// inserts for the same document id are serialized.
func (ix *Index) Insert(ctx context.Context, doc Document, chunks []Chunk) error {
	if doc.ID == "" {
		return errors.New("document id is required")
	}
	mu := ix.docLock(doc.ID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, uploaded_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET filename = excluded.filename, uploaded_at = excluded.uploaded_at`,
		doc.ID, doc.Filename, doc.UploadedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, seq, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		vec := NormalizeVector(chunk.Embedding)
		if _, err := stmt.ExecContext(ctx, doc.ID, chunk.Seq, chunk.Content, EncodeVector(vec)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Seq, err)
		}
	}
	return tx.Commit()
}

// Search returns the k chunks most similar to the query vector, ordered by
// descending score. Ties keep insertion order. An empty index yields an
// empty result.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	dimRaw, err := ix.metaValue(ctx, metaEmbeddingDim)
	if err != nil {
		return nil, err
	}
	if storedDim, _ := strconv.Atoi(dimRaw); storedDim > 0 && len(query) != storedDim {
		return nil, fmt.Errorf("query has %d dimensions but the index stores %d", len(query), storedDim)
	}
	query = NormalizeVector(query)

	rows, err := ix.db.QueryContext(ctx, `
		SELECT c.document_id, d.filename, c.seq, c.content, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.DocumentID, &m.Filename, &m.Seq, &m.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s/%d: %w", m.DocumentID, m.Seq, err)
		}
		m.Score = CosineSimilarity(query, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteByDocument removes a document and its chunks. Deleting an unknown id
// is not an error; the returned flag reports whether anything was removed.
func (ix *Index) DeleteByDocument(ctx context.Context, documentID string) (bool, error) {
	mu := ix.docLock(documentID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return false, fmt.Errorf("delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Documents lists all ingested documents with their chunk counts, newest
// first.
func (ix *Index) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT d.id, d.filename, d.uploaded_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.uploaded_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		if err := rows.Scan(&info.ID, &info.Filename, &info.UploadedAt, &info.ChunkCount); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, info)
	}
	return docs, rows.Err()
}

// Stats derives current index statistics from the tables.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&s.Documents); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	if err := ix.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks`).Scan(&s.Chunks); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	model, err := ix.metaValue(ctx, metaEmbeddingModel)
	if err != nil {
		return Stats{}, err
	}
	dimRaw, err := ix.metaValue(ctx, metaEmbeddingDim)
	if err != nil {
		return Stats{}, err
	}
	s.EmbeddingModel = model
	s.Dimension, _ = strconv.Atoi(dimRaw)
	return s, nil
}
