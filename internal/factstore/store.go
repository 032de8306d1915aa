package factstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/yildizm/studyrag/internal/vectorindex"
)

// Entry is one question/answer fact.
type Entry struct {
	ID       string `yaml:"id,omitempty"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
	Category string `yaml:"category,omitempty"`
}

// Match is a fact scored against a query vector.
type Match struct {
	Entry
	Score float32
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS facts (
	id            TEXT PRIMARY KEY,
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	norm_question TEXT NOT NULL UNIQUE,
	embedding     BLOB
);
`

// Store persists question/answer facts alongside their embeddings.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. The facts table is created if missing.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("ensure facts schema: %w", err)
	}
	return &Store{db: db}, nil
}

// normalizeQuestion collapses whitespace and case so near-duplicate questions
// dedupe against each other.
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Seed inserts entries that are not already present, judged by their
// normalized question text. Returns the number of entries actually added.
// Seeding the same set twice is a no-op.
func (s *Store) Seed(ctx context.Context, entries []Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (id, question, answer, category, norm_question)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(norm_question) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return added, fmt.Errorf("fact %q: question and answer are required", e.Question)
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		res, err := stmt.ExecContext(ctx, id, e.Question, e.Answer, e.Category, normalizeQuestion(e.Question))
		if err != nil {
			return added, fmt.Errorf("insert fact %q: %w", e.Question, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return added, fmt.Errorf("insert fact %q: %w", e.Question, err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// Embedder produces embedding vectors for fact questions.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedPending embeds facts that do not have a vector yet. New seeds land
// without embeddings so seeding stays cheap; this backfills them before
// search.
func (s *Store) EmbedPending(ctx context.Context, embedder Embedder) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question FROM facts WHERE embedding IS NULL ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("query pending facts: %w", err)
	}

	var ids []string
	var questions []string
	for rows.Next() {
		var id, q string
		if err := rows.Scan(&id, &q); err != nil {
			rows.Close()
			return fmt.Errorf("scan pending fact: %w", err)
		}
		ids = append(ids, id)
		questions = append(questions, q)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	vectors, err := embedder.Embed(ctx, questions)
	if err != nil {
		return err
	}
	if len(vectors) != len(ids) {
		return fmt.Errorf("expected %d fact embeddings, got %d", len(ids), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin embed tx: %w", err)
	}
	defer tx.Rollback()
	for i, id := range ids {
		vec := vectorindex.NormalizeVector(vectors[i])
		if _, err := tx.ExecContext(ctx,
			`UPDATE facts SET embedding = ? WHERE id = ?`,
			vectorindex.EncodeVector(vec), id); err != nil {
			return fmt.Errorf("store fact embedding: %w", err)
		}
	}
	return tx.Commit()
}

// Search returns the k facts most similar to the query vector, ordered by
// descending score with ties keeping insertion order. Facts without
// embeddings are skipped.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, vectorindex.ErrInvalidTopK
	}
	query = vectorindex.NormalizeVector(query)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, category, embedding
		FROM facts WHERE embedding IS NOT NULL ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Question, &m.Answer, &m.Category, &blob); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		vec, err := vectorindex.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode fact %s: %w", m.ID, err)
		}
		m.Score = vectorindex.CosineSimilarity(query, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// All returns every fact in insertion order.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, category FROM facts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Category); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored facts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}
