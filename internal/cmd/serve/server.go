package serve

import (
	"context"
	"fmt"
	"net"

	"github.com/charmbracelet/log"

	adaptermcp "github.com/memorai/memoraid/internal/adapter/mcp"
	adapterhttp "github.com/memorai/memoraid/internal/adapter/http"
	"github.com/memorai/memoraid/internal/config"
	"github.com/memorai/memoraid/internal/engine"
	registryembed "github.com/memorai/memoraid/internal/registry/embed"
	registryvector "github.com/memorai/memoraid/internal/registry/vector"
	"github.com/memorai/memoraid/internal/service"
	"github.com/memorai/memoraid/internal/store"
	"github.com/memorai/memoraid/internal/temporal"
)

// Server holds the running memory engine and its listeners.
type Server struct {
	Config *config.Config
	Engine *engine.Engine
	Addr   net.Addr

	closeListener   func(context.Context) error
	closeManagement func(context.Context) error
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	if s.closeManagement != nil {
		if err := s.closeManagement(ctx); err != nil {
			shutdownErr = err
		}
	}
	if s.closeListener != nil {
		if err := s.closeListener(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	return shutdownErr
}

// StartServer wires the store, embedder, vector store, and temporal engine
// into a Memory Engine, starts its HTTP adapter (and, if enabled, its MCP
// adapter over stdio), and launches the background maintenance sweep.
func StartServer(ctx context.Context, cfg *config.Config, enableMCP bool) (*Server, error) {
	ctx = config.WithContext(ctx, cfg)

	provider := cfg.SelectedProvider()
	log.Info("Starting memoraid",
		"listenPort", cfg.Listener.Port,
		"dataPath", cfg.ResolvedDataPath(),
		"embedder", provider,
	)

	embedLoader, err := registryembed.Select(string(provider))
	if err != nil {
		return nil, fmt.Errorf("failed to select embedder %q: %w", provider, err)
	}
	embedder, err := embedLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder %q: %w", provider, err)
	}

	vectorLoader, err := registryvector.Select("sqlite-vec")
	if err != nil {
		return nil, fmt.Errorf("failed to select vector store: %w", err)
	}
	vectorStore, err := vectorLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	memStore, err := store.New(cfg.ResolvedDataPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	temporalEngine := temporal.New(temporal.DefaultParams, cfg.ArchiveThreshold, cfg.ForgetThreshold)

	eng := engine.New(engine.Params{
		Store:                  memStore,
		Vector:                 vectorStore,
		Embedder:               embedder,
		Temporal:               temporalEngine,
		Dimension:              cfg.Dimension,
		DefaultRecallLimit:     cfg.DefaultRecallLimit,
		DefaultRecallThreshold: cfg.DefaultRecallThreshold,
		SemanticWeight:         cfg.SemanticWeight,
		KeywordWeight:          cfg.KeywordWeight,
		RememberQueueSize:      cfg.RememberQueueSize,
	})
	if err := eng.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	router := adapterhttp.NewRouter(eng, corsMiddlewareIfEnabled(cfg)...)

	addr, closeListener, err := startHTTPListener(cfg.Listener, router)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener: %w", err)
	}

	var closeManagement func(context.Context) error
	if cfg.ManagementListener.Port != 0 {
		mgmtCfg := cfg.ManagementListener
		mgmtCfg.TLSCertFile = cfg.Listener.TLSCertFile
		mgmtCfg.TLSKeyFile = cfg.Listener.TLSKeyFile
		_, closeManagement, err = startHTTPListener(mgmtCfg, router)
		if err != nil {
			return nil, fmt.Errorf("failed to start management listener: %w", err)
		}
	}

	maintenance := service.NewMaintenanceService(eng, cfg.MaintenanceInterval, cfg.MaintenanceBatch)
	go maintenance.Start(ctx)

	if enableMCP {
		go func() {
			if err := adaptermcp.Serve(ctx, eng); err != nil {
				log.Error("mcp adapter stopped", "err", err)
			}
		}()
	}

	log.Info("memoraid listening", "addr", addr)

	return &Server{
		Config:          cfg,
		Engine:          eng,
		Addr:            addr,
		closeListener:   closeListener,
		closeManagement: closeManagement,
	}, nil
}
