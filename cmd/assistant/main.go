// Command assistant runs the conversational backend: plain chat, document
// and URL question answering, and the error decoder, all over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/veronica-ai/assistant-go/internal/adapters/embedding"
	"github.com/veronica-ai/assistant-go/internal/adapters/filewatcher"
	"github.com/veronica-ai/assistant-go/internal/adapters/llm"
	"github.com/veronica-ai/assistant-go/internal/adapters/loader"
	"github.com/veronica-ai/assistant-go/internal/adapters/vectordb"
	"github.com/veronica-ai/assistant-go/internal/config"
	"github.com/veronica-ai/assistant-go/internal/domain/ports"
	"github.com/veronica-ai/assistant-go/internal/domain/usecases"
	httpserver "github.com/veronica-ai/assistant-go/internal/infrastructure/http"
	"github.com/veronica-ai/assistant-go/internal/logger"
	"github.com/veronica-ai/assistant-go/internal/store"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:     "assistant",
		Short:   "Conversational assistant backend with document and URL question answering",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		watchDir   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if watchDir != "" {
				cfg.Server.WatchDir = watchDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().StringVarP(&watchDir, "watch", "w", "", "directory to auto-ingest documents from (overrides config)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	builder, closeBuilder, err := buildIndexBuilder(cfg)
	if err != nil {
		return err
	}
	defer closeBuilder()

	docLoader := loader.NewMultiLoader(cfg.Loader.PDFParserURL)
	conversations := store.NewConversationStore()
	sessions := store.NewSessionRegistry()

	files, err := store.NewFileStore(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	ingest := usecases.NewIngestUseCase(
		docLoader, embedder, builder, conversations, sessions,
		cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap, cfg.Retrieval.TopK,
	)
	rag := usecases.NewRAGUseCase(embedder, registry, conversations, sessions, cfg.Retrieval.TopK)
	chat := usecases.NewChatUseCase(registry, conversations)

	if cfg.Server.WatchDir != "" {
		if err := startWatcher(ctx, cfg.Server.WatchDir, ingest); err != nil {
			return err
		}
	}

	logger.Info("routing models: %v (default %s)", registry.Models(), cfg.Chat.DefaultModel)

	server := httpserver.NewServer(chat, rag, ingest, files, sessions, cfg.Server.Addr)
	return server.Start(ctx)
}

func buildEmbedder(cfg *config.Config) (ports.EmbeddingService, error) {
	var svc ports.EmbeddingService
	switch cfg.Embedding.Provider {
	case "ollama":
		svc = embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model)
	case "openai":
		key := config.APIKey(cfg.Embedding.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("embedding provider openai needs an API key in $%s", cfg.Embedding.APIKeyEnv)
		}
		svc = embedding.NewOpenAIAdapter(cfg.Embedding.BaseURL, key, cfg.Embedding.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	return embedding.NewRateLimited(svc, cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst), nil
}

func buildRegistry(cfg *config.Config) (*llm.Registry, error) {
	registry := llm.NewRegistry()

	for _, p := range cfg.Providers {
		for _, model := range p.Models {
			switch p.Type {
			case "ollama":
				registry.Register(model, llm.NewOllamaAdapter(p.BaseURL, model))
			case "openai":
				key := config.APIKey(p.APIKeyEnv)
				if key == "" {
					return nil, fmt.Errorf("provider %s needs an API key in $%s", p.Name, p.APIKeyEnv)
				}
				registry.Register(model, llm.NewOpenAIAdapter(p.BaseURL, key, model))
			default:
				return nil, fmt.Errorf("unknown provider type %q", p.Type)
			}
		}
	}

	registry.SetDefault(cfg.Chat.DefaultModel)
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

func buildIndexBuilder(cfg *config.Config) (ports.IndexBuilder, func(), error) {
	switch cfg.Index.Backend {
	case "sqlite":
		b, err := vectordb.NewSQLiteBuilder(cfg.Index.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	default:
		return vectordb.NewMemoryBuilder(), func() {}, nil
	}
}

// startWatcher ingests documents dropped into dir, each into a fresh
// conversation. Modified files are re-ingested under a new conversation
// because built indices are immutable.
func startWatcher(ctx context.Context, dir string, ingest *usecases.IngestUseCase) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(nil)
	if err != nil {
		return err
	}

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Stop()
		return err
	}

	logger.Info("watching %s for documents", dir)

	go func() {
		defer watcher.Stop()
		for event := range events {
			if event.Operation == ports.FileDeleted {
				continue
			}
			id, err := ingest.Ingest(ctx, event.Path, "")
			if err != nil {
				logger.Error("auto-ingest %s: %v", event.Path, err)
				continue
			}
			logger.Info("auto-ingested %s as conversation %s", event.Path, id)
		}
	}()

	return nil
}
