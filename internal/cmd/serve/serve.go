package serve

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/memorai/memoraid/internal/config"

	// Import all plugins to trigger init() registration.
	_ "github.com/memorai/memoraid/internal/plugin/embed/azureopenai"
	_ "github.com/memorai/memoraid/internal/plugin/embed/disabled"
	_ "github.com/memorai/memoraid/internal/plugin/embed/local"
	_ "github.com/memorai/memoraid/internal/plugin/embed/openai"
	_ "github.com/memorai/memoraid/internal/plugin/vector/sqlitevec"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs = 5
	var enableMCP bool
	var drainSeconds = 10
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the memoraid HTTP (and optional MCP) memory engine adapters",
		Flags: flags(&cfg, &readHeaderTimeoutSecs, &enableMCP, &drainSeconds),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			cfg.ManagementListener.ReadHeaderTimeout = cfg.Listener.ReadHeaderTimeout
			return run(ctx, cfg, enableMCP, time.Duration(drainSeconds)*time.Second)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int, enableMCP *bool, drainSeconds *int) []cli.Flag {
	return []cli.Flag{
		// ── Listener ──────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP listener port",
		},
		&cli.BoolFlag{
			Name:        "tls",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_TLS"),
			Destination: &cfg.Listener.EnableTLS,
			Usage:       "Enable TLS on the HTTP listener (self-signed if no cert/key given)",
		},
		&cli.StringFlag{
			Name:        "tls-cert-file",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_TLS_CERT_FILE"),
			Destination: &cfg.Listener.TLSCertFile,
			Usage:       "TLS certificate file",
		},
		&cli.StringFlag{
			Name:        "tls-key-file",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_TLS_KEY_FILE"),
			Destination: &cfg.Listener.TLSKeyFile,
			Usage:       "TLS private key file",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.IntFlag{
			Name:        "management-port",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_MANAGEMENT_PORT"),
			Destination: &cfg.ManagementListener.Port,
			Value:       cfg.ManagementListener.Port,
			Usage:       "Second port serving the same routes as the main listener, /healthz and /metrics included; 0 disables it (the main listener serves /healthz and /metrics either way)",
		},
		&cli.BoolFlag{
			Name:        "cors-enabled",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_CORS_ENABLED"),
			Destination: &cfg.CORSEnabled,
			Usage:       "Enable CORS on the HTTP listener",
		},
		&cli.StringFlag{
			Name:        "cors-origins",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_CORS_ORIGINS"),
			Destination: &cfg.CORSOrigins,
			Usage:       "Comma-separated allowed CORS origins; empty allows any",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Listener:",
			Sources:     cli.EnvVars("MEMORAID_DRAIN_TIMEOUT_SECONDS"),
			Destination: drainSeconds,
			Value:       *drainSeconds,
			Usage:       "Grace period for in-flight requests during shutdown",
		},

		// ── Adapters ──────────────────────────────────────────────
		&cli.BoolFlag{
			Name:        "mcp",
			Category:    "Adapters:",
			Sources:     cli.EnvVars("MEMORAID_MCP_ENABLED"),
			Destination: enableMCP,
			Usage:       "Also expose the memory engine as an MCP server over stdio",
		},

		// ── Store ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "data-path",
			Category:    "Store:",
			Sources:     cli.EnvVars("MEMORAID_DATA_PATH"),
			Destination: &cfg.DataPath,
			Usage:       "Directory for persisted memory records and the vector index; defaults to the platform's per-user data directory",
		},
		&cli.IntFlag{
			Name:        "dimension",
			Category:    "Store:",
			Sources:     cli.EnvVars("MEMORAID_DIMENSION"),
			Destination: &cfg.Dimension,
			Value:       cfg.Dimension,
			Usage:       "Embedding dimension; must match the selected embedder",
		},

		// ── Recall ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "default-recall-limit",
			Category:    "Recall:",
			Sources:     cli.EnvVars("MEMORAID_DEFAULT_RECALL_LIMIT"),
			Destination: &cfg.DefaultRecallLimit,
			Value:       cfg.DefaultRecallLimit,
			Usage:       "Default maximum results for recall when the caller doesn't specify one",
		},
		&cli.Float64Flag{
			Name:        "default-recall-threshold",
			Category:    "Recall:",
			Sources:     cli.EnvVars("MEMORAID_DEFAULT_RECALL_THRESHOLD"),
			Destination: &cfg.DefaultRecallThreshold,
			Value:       cfg.DefaultRecallThreshold,
			Usage:       "Default minimum merged score for recall when the caller doesn't specify one",
		},
		&cli.Float64Flag{
			Name:        "semantic-weight",
			Category:    "Recall:",
			Sources:     cli.EnvVars("MEMORAID_SEMANTIC_WEIGHT"),
			Destination: &cfg.SemanticWeight,
			Value:       cfg.SemanticWeight,
			Usage:       "Weight of semantic similarity in the merged recall score",
		},
		&cli.Float64Flag{
			Name:        "keyword-weight",
			Category:    "Recall:",
			Sources:     cli.EnvVars("MEMORAID_KEYWORD_WEIGHT"),
			Destination: &cfg.KeywordWeight,
			Value:       cfg.KeywordWeight,
			Usage:       "Weight of keyword overlap in the merged recall score",
		},
		&cli.IntFlag{
			Name:        "remember-queue-size",
			Category:    "Recall:",
			Sources:     cli.EnvVars("MEMORAID_REMEMBER_QUEUE_SIZE"),
			Destination: &cfg.RememberQueueSize,
			Value:       cfg.RememberQueueSize,
			Usage:       "Bound on concurrent remember calls; 0 means unbounded",
		},

		// ── Temporal decay ────────────────────────────────────────
		&cli.Float64Flag{
			Name:        "archive-threshold",
			Category:    "Temporal decay:",
			Sources:     cli.EnvVars("MEMORAID_ARCHIVE_THRESHOLD"),
			Destination: &cfg.ArchiveThreshold,
			Value:       cfg.ArchiveThreshold,
			Usage:       "Adjusted-confidence threshold below which a memory is archive-eligible",
		},
		&cli.Float64Flag{
			Name:        "forget-threshold",
			Category:    "Temporal decay:",
			Sources:     cli.EnvVars("MEMORAID_FORGET_THRESHOLD"),
			Destination: &cfg.ForgetThreshold,
			Value:       cfg.ForgetThreshold,
			Usage:       "Adjusted-confidence threshold below which the maintenance sweep forgets a memory",
		},
		&cli.DurationFlag{
			Name:        "maintenance-interval",
			Category:    "Temporal decay:",
			Sources:     cli.EnvVars("MEMORAID_MAINTENANCE_INTERVAL"),
			Destination: &cfg.MaintenanceInterval,
			Value:       cfg.MaintenanceInterval,
			Usage:       "How often the background forget sweep runs; 0 disables it",
		},
		&cli.IntFlag{
			Name:        "maintenance-batch",
			Category:    "Temporal decay:",
			Sources:     cli.EnvVars("MEMORAID_MAINTENANCE_BATCH"),
			Destination: &cfg.MaintenanceBatch,
			Value:       cfg.MaintenanceBatch,
			Usage:       "Maximum records the sweep forgets per tick",
		},

		// ── Embedding ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "embedder",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_EMBEDDER"),
			Destination: (*string)(&cfg.EmbedderProvider),
			Usage:       "Embedder provider: hosted-alternate, hosted-primary, local, or disabled; auto-selected when unset",
		},
		&cli.StringFlag{
			Name:        "embedder-local-model",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_LOCAL_MODEL"),
			Destination: &cfg.Local.ModelName,
			Usage:       "Model identifier reported by the local hash embedder",
		},
		&cli.StringFlag{
			Name:        "embedder-openai-model",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_OPENAI_MODEL"),
			Destination: &cfg.HostedPrimary.ModelName,
			Value:       cfg.HostedPrimary.ModelName,
			Usage:       "OpenAI embedding model name",
		},
		&cli.StringFlag{
			Name:        "embedder-openai-api-key",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &cfg.HostedPrimary.APIKey,
			Usage:       "OpenAI API key",
		},
		&cli.StringFlag{
			Name:        "embedder-openai-base-url",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_OPENAI_BASE_URL"),
			Destination: &cfg.HostedPrimary.BaseURL,
			Value:       cfg.HostedPrimary.BaseURL,
			Usage:       "OpenAI-compatible API base URL",
		},
		&cli.StringFlag{
			Name:        "embedder-azure-deployment",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_AZURE_DEPLOYMENT"),
			Destination: &cfg.HostedAlternate.DeploymentID,
			Usage:       "Azure OpenAI deployment id",
		},
		&cli.StringFlag{
			Name:        "embedder-azure-api-key",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_AZURE_API_KEY"),
			Destination: &cfg.HostedAlternate.APIKey,
			Usage:       "Azure OpenAI API key",
		},
		&cli.StringFlag{
			Name:        "embedder-azure-base-url",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_AZURE_BASE_URL"),
			Destination: &cfg.HostedAlternate.BaseURL,
			Usage:       "Azure OpenAI resource endpoint",
		},
		&cli.StringFlag{
			Name:        "embedder-azure-api-version",
			Category:    "Embedding:",
			Sources:     cli.EnvVars("MEMORAID_AZURE_API_VERSION"),
			Destination: &cfg.HostedAlternate.APIVersion,
			Usage:       "Azure OpenAI API version",
		},
	}
}

func run(ctx context.Context, cfg config.Config, enableMCP bool, drainTimeout time.Duration) error {
	srv, err := StartServer(ctx, &cfg, enableMCP)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("server stopped")
	return nil
}
