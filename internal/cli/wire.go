package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/yildizm/go-termfmt"
	"github.com/yildizm/studyrag/internal/ai"
	"github.com/yildizm/studyrag/internal/ai/providers/ollama"
	"github.com/yildizm/studyrag/internal/ai/providers/openai"
	"github.com/yildizm/studyrag/internal/answer"
	"github.com/yildizm/studyrag/internal/assemble"
	"github.com/yildizm/studyrag/internal/chunker"
	"github.com/yildizm/studyrag/internal/config"
	"github.com/yildizm/studyrag/internal/factstore"
	"github.com/yildizm/studyrag/internal/history"
	"github.com/yildizm/studyrag/internal/logger"
	"github.com/yildizm/studyrag/internal/pipeline"
	"github.com/yildizm/studyrag/internal/vectorindex"
)

var registerOnce sync.Once

func registerProviders() {
	registerOnce.Do(func() {
		if err := ollama.Register(); err != nil {
			panic(err)
		}
		if err := openai.Register(); err != nil {
			panic(err)
		}
	})
}

// app bundles everything a command needs.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	facts    *factstore.Store
	sessions *history.Store
	db       *sql.DB
	log      *logger.Logger
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// setupApp loads config, opens storage, and builds the pipeline.
func setupApp(ctx context.Context) (*app, error) {
	registerProviders()

	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if noColor {
		cfg.Output.NoColor = true
	}
	if noEmoji {
		cfg.Output.NoEmoji = true
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.Storage.DataDir, cfg.Storage.IndexFile)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	index, err := vectorindex.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	facts, err := factstore.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	sessions, err := history.NewStore(filepath.Join(cfg.Storage.DataDir, cfg.Storage.HistoryDir))
	if err != nil {
		db.Close()
		return nil, err
	}

	provider, err := ai.NewProvider(cfg.Provider.Name, &ai.Settings{
		Endpoint:        cfg.Provider.Endpoint,
		APIKey:          cfg.Provider.APIKey,
		Model:           cfg.Provider.Model,
		EmbedModel:      cfg.Provider.EmbedModel,
		EmbedDimensions: cfg.Provider.EmbedDimensions,
		Timeout:         cfg.Provider.Timeout,
		MaxRetries:      cfg.Provider.MaxRetries,
		Temperature:     cfg.Provider.Temperature,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := pipeline.Options{
		Chunking: chunker.Options{
			ChunkSize: cfg.Chunking.Size,
			Overlap:   cfg.Chunking.Overlap,
		},
		Retrieval: assemble.Options{
			TopKDocuments:   cfg.Retrieval.TopKDocuments,
			TopKFacts:       cfg.Retrieval.TopKFacts,
			MinScore:        float32(cfg.Retrieval.MinScore),
			MaxContextChars: cfg.Retrieval.MaxContextChars,
		},
		Answering: answer.Options{
			MaxTokens:    1024,
			Temperature:  cfg.Provider.Temperature,
			HistoryTurns: cfg.Retrieval.HistoryTurns,
		},
	}

	log := logger.New("studyrag")
	p, err := pipeline.New(provider, index, facts, sessions, opts, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		pipeline: p,
		facts:    facts,
		sessions: sessions,
		db:       db,
		log:      log,
	}, nil
}

// termOptions builds terminal rendering options from flags and config.
func (a *app) termOptions() *termfmt.TerminalOptions {
	opts := termfmt.DefaultOptions()
	opts.Color = !a.cfg.Output.NoColor
	opts.Emoji = !a.cfg.Output.NoEmoji
	return opts
}
