// Package server orchestrates all components: config, database, COMMS
// client, action registry, dispatcher, and the HTTP endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/xotizwf-create/Uchet/internal/config"
	"github.com/xotizwf-create/Uchet/pkg/action"
	"github.com/xotizwf-create/Uchet/pkg/commsutil"
	"github.com/xotizwf-create/Uchet/pkg/contracts"
	"github.com/xotizwf-create/Uchet/pkg/db"
	"github.com/xotizwf-create/Uchet/pkg/demo"
	"github.com/xotizwf-create/Uchet/pkg/dispatch"
	"github.com/xotizwf-create/Uchet/pkg/events"
	"github.com/xotizwf-create/Uchet/pkg/pricelist"
	"github.com/xotizwf-create/Uchet/pkg/session"
	"github.com/xotizwf-create/Uchet/pkg/shimver"
	"github.com/xotizwf-create/Uchet/pkg/warehouse"
)

const logPrefix = "server:server"

// Server is the uchet backend orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn // nil when the COMMS transport is disabled
	pool       *pgxpool.Pool
	httpServer *http.Server
	actions    *action.Registry
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	// Setup structured logging
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}

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

	slog.Info(fmt.Sprintf("%s - Starting uchet backend", logPrefix))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Step 1: Shim version gate
	gate, err := shimver.NewGate(cfg.ShimConstraint)
	if err != nil {
		return fmt.Errorf("%s - bad SHIM_CONSTRAINT: %w", logPrefix, err)
	}
	if cfg.ShimConstraint != "" {
		slog.Info(fmt.Sprintf("%s - Shim gate enforcing %q", logPrefix, cfg.ShimConstraint))
	}

	// Step 2: Connect to COMMS (optional; HTTP works without it)
	if cfg.COMMSURL != "" {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
	} else {
		slog.Info(fmt.Sprintf("%s - COMMS transport disabled (COMMS_URL empty)", logPrefix))
	}

	// Step 3: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		s.closeComms()
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	// Step 3b: Run migrations if enabled
	if cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			s.closeEverything()
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			s.closeEverything()
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	// Step 3c: Seed demo data if enabled
	fixture := demo.DefaultFixture()
	if cfg.SeedDemo {
		if cfg.FixtureFile != "" {
			fixture, err = demo.LoadFixture(cfg.FixtureFile)
			if err != nil {
				s.closeEverything()
				return fmt.Errorf("%s - failed to load fixture: %w", logPrefix, err)
			}
		}
		if err := db.SeedDemo(ctx, pool, fixture); err != nil {
			s.closeEverything()
			return fmt.Errorf("%s - failed to seed demo data: %w", logPrefix, err)
		}
	}

	// Step 4: Register domain actions
	repo := db.NewRepository(pool)
	actions := action.NewRegistry()
	if err := warehouse.NewService(repo).Register(actions); err != nil {
		s.closeEverything()
		return fmt.Errorf("%s - failed to register warehouse actions: %w", logPrefix, err)
	}
	if err := pricelist.NewService(repo).Register(actions); err != nil {
		s.closeEverything()
		return fmt.Errorf("%s - failed to register pricelist actions: %w", logPrefix, err)
	}
	if err := contracts.NewService(repo).Register(actions); err != nil {
		s.closeEverything()
		return fmt.Errorf("%s - failed to register contracts actions: %w", logPrefix, err)
	}
	s.actions = actions

	// Step 5: Sessions
	tokens := session.NewTokenStore(cfg.TokenTTL)
	for token, userID := range cfg.StaticTokens {
		tokens.Add(token, session.Identity{UserID: userID})
	}
	if len(cfg.StaticTokens) > 0 {
		slog.Info(fmt.Sprintf("%s - Loaded %d static tokens", logPrefix, len(cfg.StaticTokens)))
	}
	if cfg.SeedDemo && len(cfg.StaticTokens) == 0 {
		// First-run convenience: without configured tokens a seeded
		// database would be unreachable.
		token, err := tokens.Issue(session.Identity{UserID: fixture.User})
		if err != nil {
			s.closeEverything()
			return fmt.Errorf("%s - failed to issue demo token: %w", logPrefix, err)
		}
		slog.Info(fmt.Sprintf("%s - Issued token for demo user %s: %s", logPrefix, fixture.User, token))
	}

	// Step 5b: System actions need the finished registry and the pool
	if err := s.registerSystemActions(actions); err != nil {
		s.closeEverything()
		return fmt.Errorf("%s - failed to register system actions: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Registered %d actions", logPrefix, actions.Len()))

	// Step 6: Create dispatcher
	var publisher events.Publisher = &events.NoOpPublisher{}
	if s.nc != nil {
		publisher = events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{
			StreamSubject: cfg.AuditSubject,
		})
	}
	disp := dispatch.New(actions, tokens, &dispatch.Opts{Gate: gate, Publisher: publisher})

	// Step 7: Bind the dispatcher to COMMS request/reply
	var sub *comms.Subscription
	if s.nc != nil {
		requestTimeout := cfg.RequestTimeout
		sub, err = s.nc.Subscribe(cfg.BackendSubject, func(msg *comms.Msg) {
			reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
			defer cancel()

			// Token and shim travel inside the request ctx field here.
			resp := disp.Dispatch(reqCtx, dispatch.Credentials{}, msg.Data)
			msg.Respond(commsutil.EncodeReply(resp))
		})
		if err != nil {
			s.closeEverything()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, cfg.BackendSubject, err)
		}
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, cfg.BackendSubject))
	}

	// Step 8: HTTP endpoint
	healthTimeout := cfg.HealthCheckTimeout
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.Handle("/api/appBackend", withTimeout(disp, cfg.RequestTimeout))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		h := s.health(healthCtx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	s.httpServer = &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Uchet backend is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	if sub != nil {
		sub.Unsubscribe()
	}
	s.httpServer.Shutdown(ctx)
	if s.nc != nil {
		s.nc.Drain()
	}
	pool.Close()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

func (s *Server) closeComms() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func (s *Server) closeEverything() {
	if s.pool != nil {
		s.pool.Close()
	}
	s.closeComms()
}

// withTimeout bounds every dispatched request with the configured
// timeout so a stuck query cannot hold the connection open forever.
func withTimeout(h http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// healthStatus is the health report returned by /health and system.health.
type healthStatus struct {
	Status    string       `json:"status"`
	Checks    healthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

type healthChecks struct {
	Database bool `json:"database"`
	Comms    bool `json:"comms"`
}

// health pings the database and checks the COMMS connection. A disabled
// COMMS transport counts as healthy.
func (s *Server) health(ctx context.Context) healthStatus {
	dbOk := s.pool != nil && s.pool.Ping(ctx) == nil
	commsOk := true
	if s.nc != nil {
		commsOk = s.nc.IsConnected()
	}

	status := "healthy"
	if !dbOk || !commsOk {
		status = "unhealthy"
	}

	return healthStatus{
		Status:    status,
		Checks:    healthChecks{Database: dbOk, Comms: commsOk},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// actionInfo is one row of the system.actions listing.
type actionInfo struct {
	Name     string `json:"name"`
	Doc      string `json:"doc,omitempty"`
	Mutating bool   `json:"mutating"`
}

func (s *Server) actionList() []actionInfo {
	names := s.actions.Names()
	infos := make([]actionInfo, 0, len(names))
	for _, name := range names {
		spec, _ := s.actions.Lookup(name)
		infos = append(infos, actionInfo{Name: name, Doc: spec.Doc, Mutating: spec.Mutating})
	}
	return infos
}

// registerSystemActions adds the built-in introspection actions.
func (s *Server) registerSystemActions(reg *action.Registry) error {
	if err := reg.Register("system.health", action.Spec{
		Doc: "database and comms reachability",
		Handler: func(ctx context.Context, _ session.Identity, _ json.RawMessage) (interface{}, error) {
			healthCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthCheckTimeout)
			defer cancel()
			return s.health(healthCtx), nil
		},
	}); err != nil {
		return err
	}
	if err := reg.Register("system.actions", action.Spec{
		Doc: "sorted list of registered actions",
		Handler: func(_ context.Context, _ session.Identity, _ json.RawMessage) (interface{}, error) {
			return s.actionList(), nil
		},
	}); err != nil {
		return err
	}
	return reg.Register("system.whoami", action.Spec{
		Doc: "identity behind the presented token",
		Handler: func(_ context.Context, caller session.Identity, _ json.RawMessage) (interface{}, error) {
			return caller, nil
		},
	})
}

// homePageTemplate is the HTML for the backend home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Uchet Backend</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    code { background: #f5f5f5; padding: 0.1rem 0.3rem; border: 1px solid #eee; }
  </style>
</head>
<body>
  <h1>Uchet Backend</h1>
  <p class="meta">Single-endpoint backend for the legacy business app: contracts, warehouse, price list.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Database: {{if .Health.Checks.Database}}<span class="stat">OK</span>{{else}}<span class="status-unhealthy">Failed</span>{{end}}</p>
    <p>Comms: {{if not .CommsEnabled}}disabled{{else if .Health.Checks.Comms}}<span class="stat">OK</span>{{else}}<span class="status-unhealthy">Failed</span>{{end}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Endpoint</h2>
    <p>All actions go through <code>POST /api/appBackend</code> with a JSON body:</p>
    <p><code>{"action": "warehouse.getStock", "params": {"sku": "X1"}}</code></p>
    <p>Authenticate with <code>Authorization: Bearer &lt;token&gt;</code> (or <code>X-Auth-Token</code>).
    Every readable request answers 200 with a <code>{success, data|error}</code> envelope.</p>
    {{if .CommsEnabled}}
    <p>The same calls are served over COMMS request/reply on <code>{{.Subject}}</code>.</p>
    {{end}}
  </section>

  <section>
    <h2>Actions</h2>
    <p>Registered actions: <span class="stat">{{len .Actions}}</span></p>
    <table>
      <thead>
        <tr><th>Action</th><th>Mutates</th><th>Description</th></tr>
      </thead>
      <tbody>
        {{range .Actions}}
        <tr>
          <td><code>{{.Name}}</code></td>
          <td>{{if .Mutating}}yes{{else}}&mdash;{{end}}</td>
          <td>{{.Doc}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health       healthStatus
	Actions      []actionInfo
	CommsEnabled bool
	Subject      string
}

// handleHome returns an HTTP handler for the backend home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:       s.health(ctx),
			Actions:      s.actionList(),
			CommsEnabled: s.nc != nil,
			Subject:      s.cfg.BackendSubject,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
