// Package server orchestrates all components: service registry, dispatcher,
// optional COMMS binding and database, HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morezero/jsonrpc11/internal/config"
	"github.com/morezero/jsonrpc11/pkg/commsutil"
	"github.com/morezero/jsonrpc11/pkg/db"
	"github.com/morezero/jsonrpc11/pkg/dispatcher"
	"github.com/morezero/jsonrpc11/pkg/events"
	"github.com/morezero/jsonrpc11/pkg/metrics"
	"github.com/morezero/jsonrpc11/pkg/registry"
	"github.com/morezero/jsonrpc11/pkg/servicedef"
)

const logPrefix = "server:server"

// purgeInterval is how often expired rows are removed from the result cache table.
const purgeInterval = time.Minute

// Installer registers the procedures of the hosted service.
type Installer func(reg *registry.Registry, def *servicedef.Definition) error

// Server hosts one JSON-RPC service.
type Server struct {
	cfg        *config.Config
	def        *servicedef.Definition
	nc         *comms.Conn
	ownsConn   bool
	pool       *pgxpool.Pool
	reg        *registry.Registry
	disp       *dispatcher.Dispatcher
	gatherer   *prometheus.Registry
	sub        *comms.Subscription
	httpServer *http.Server
}

// NewServerParams holds parameters for NewServer.
type NewServerParams struct {
	Config  *config.Config
	Install Installer
	// Conn is an established COMMS connection to use instead of dialing
	// Config.COMMSURL. The caller keeps ownership.
	Conn *comms.Conn
}

// NewServer wires the registry, dispatcher and optional COMMS and database
// connections. Call Close to release them.
func NewServer(ctx context.Context, params NewServerParams) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("%s - config is required", logPrefix)
	}
	s := &Server{cfg: cfg}

	// Step 1: Load service definition
	def, err := servicedef.Load(cfg.ServiceName, cfg.ServiceFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load service definition: %w", logPrefix, err)
	}
	s.def = def

	// Step 2: Connect to COMMS (optional)
	switch {
	case params.Conn != nil:
		s.nc = params.Conn
	case cfg.COMMSURL != "":
		nc, err := commsutil.Connect(cfg.COMMSURL, def.Name)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
		s.ownsConn = true
	}

	// Step 3: Connect to database (optional)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(cfg.MigrationPath)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				s.Close()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
	}

	// Step 4: Create registry and install procedures
	var publisher events.EventPublisher
	if s.nc != nil {
		publisher = events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{GlobalChangeSubject: cfg.ChangeEventSubject})
	}
	reg, err := registry.NewRegistry(registry.NewRegistryParams{
		Service:   def.ServiceOptions(),
		Publisher: publisher,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%s - invalid service definition: %w", logPrefix, err)
	}
	s.reg = reg
	if params.Install != nil {
		if err := params.Install(reg, def); err != nil {
			s.Close()
			return nil, fmt.Errorf("%s - failed to install procedures: %w", logPrefix, err)
		}
	}

	// Step 5: Metrics and dispatcher
	collector := metrics.NewCollector()
	s.gatherer = prometheus.NewRegistry()
	s.gatherer.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.disp = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Registry:       reg,
		Metrics:        collector,
		RequestTimeout: cfg.RequestTimeout,
	})

	// Step 6: Answer on COMMS
	if s.nc != nil {
		subject := cfg.ServiceSubject
		if subject == "" {
			subject = commsutil.BuildServiceSubject(def.Name)
		}
		sub, err := s.disp.Subscribe(ctx, s.nc, subject)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.sub = sub
	}

	return s, nil
}

// Registry returns the hosted service's registry.
func (s *Server) Registry() *registry.Registry {
	return s.reg
}

// Handler returns the HTTP routes: the service at the configured path plus
// /health, /ready, /metrics and a home page.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	router.HandleFunc("/ready", handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if s.servicePath() != "/" {
		router.HandleFunc("/", s.handleHome()).Methods(http.MethodGet)
	}
	s.disp.Mount(router, s.cfg.ServicePath)
	return router
}

// Close releases the COMMS subscription and connection and the database pool.
func (s *Server) Close() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Debug(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
		}
		s.sub = nil
	}
	if s.nc != nil && s.ownsConn {
		if err := s.nc.Drain(); err != nil {
			slog.Debug(fmt.Sprintf("%s - drain: %v", logPrefix, err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run(install Installer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	// Setup structured logging
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting jsonrpcd", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := NewServer(ctx, NewServerParams{Config: cfg, Install: install})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.pool != nil {
		go s.purgeLoop(ctx, purgeInterval)
	}

	httpAddr := cfg.ListenAddr()
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s, service at %s", logPrefix, httpAddr, s.servicePath()))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Service %s is ready", logPrefix, s.def.Name))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	s.reg.Disable()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

func (s *Server) servicePath() string {
	if s.cfg.ServicePath == "" {
		return "/"
	}
	return s.cfg.ServicePath
}

// purgeLoop removes expired result cache rows until ctx is done.
func (s *Server) purgeLoop(ctx context.Context, interval time.Duration) {
	repo := db.NewRepository(s.pool)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := repo.PurgeExpired(ctx, now); err != nil {
				slog.Warn(fmt.Sprintf("%s - cache purge failed: %v", logPrefix, err))
			}
		}
	}
}

// healthOutput is the body of /health.
type healthOutput struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Disabled  bool            `json:"disabled"`
	Checks    map[string]bool `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) health(ctx context.Context) *healthOutput {
	h := &healthOutput{
		Status:    "healthy",
		Service:   s.def.Name,
		Disabled:  s.reg.Disabled(),
		Checks:    map[string]bool{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.nc != nil {
		h.Checks["comms"] = s.nc.IsConnected()
	}
	if s.pool != nil {
		h.Checks["database"] = s.pool.Ping(ctx) == nil
	}
	for _, ok := range h.Checks {
		if !ok {
			h.Status = "unhealthy"
		}
	}
	return h
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	}
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
