// Package runtime wires configuration, database session, execution engine,
// and HTTP server into one service lifecycle. Reloads rebuild the session
// and engine from the configuration file and swap them in without
// restarting the server; a failed reload leaves the previous configuration
// serving.
package runtime

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/engine"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	transporthttp "github.com/chenhy0213/test-tool-with-db/core/infrastructure/transport/http"
	"github.com/chenhy0213/test-tool-with-db/core/session"
	"github.com/chenhy0213/test-tool-with-db/core/shared/errors"
)

const connectTimeout = 10 * time.Second

// Runtime owns the serving pieces built from one configuration document.
type Runtime struct {
	configPath string
	port       string

	// reloadMu serializes reloads; request handlers read the engine
	// through the atomic pointer and never block on it.
	reloadMu sync.Mutex
	cfg      *config.Config
	sess     *session.Session
	engine   atomic.Pointer[engine.Engine]

	server *transporthttp.Server
	log    logging.Logger
}

// New builds a runtime from a loaded configuration. configPath is kept for
// reloads; it may be empty, which disables the reload endpoint.
func New(cfg *config.Config, configPath, port string) *Runtime {
	r := &Runtime{
		configPath: configPath,
		port:       port,
		cfg:        cfg,
		sess:       session.New(cfg.Database),
		log:        logging.New("Runtime"),
	}
	r.engine.Store(engine.New(r.sess, cfg.Templates))
	return r
}

// Engine returns the engine serving the current configuration.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine.Load()
}

// Session returns the database session behind the current engine.
func (r *Runtime) Session() *session.Session {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	return r.sess
}

// Start starts the runtime server and blocks until SIGTERM/SIGINT.
func (r *Runtime) Start() error {
	if err := r.StartAsync(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return r.Stop()
}

// StartAsync connects the session and starts the HTTP server without
// blocking. A failed database connection is not fatal: the server comes up
// and queries return connection errors until a reload or reconnect.
func (r *Runtime) StartAsync() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := r.sess.Connect(ctx); err != nil {
		r.log.Warnf("Database connection failed, queries will fail until it recovers: %v", err)
	}

	queryTimeout := r.cfg.Server.QueryTimeout()
	requestTimeout := time.Duration(0)
	if queryTimeout > 0 {
		// The whole-request deadline sits above the query deadline so a
		// slow statement fails with a database error, not a cut socket.
		requestTimeout = queryTimeout + 30*time.Second
	}

	r.server = transporthttp.NewServer(r.port, requestTimeout)

	var reload transporthttp.ReloadFunc
	if r.configPath != "" {
		reload = r.Reload
	}
	transporthttp.RegisterRoutes(r.server.Router(), r.Engine, queryTimeout, reload)

	return r.server.StartAsync()
}

// Reload re-reads the configuration file, connects a fresh session, and
// swaps in a new engine. The old session closes only after the new one is
// serving, so a broken configuration or unreachable database leaves the
// running state untouched.
func (r *Runtime) Reload(ctx context.Context) (int, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	if r.configPath == "" {
		return 0, errors.NewAppError(errors.ErrCodeConfigError,
			"no configuration file to reload from", nil)
	}

	cfg, err := config.Load(r.configPath)
	if err != nil {
		return 0, errors.WrapError(errors.ErrCodeConfigError, "failed to load configuration", err)
	}
	if err := config.Validate(cfg); err != nil {
		return 0, errors.WrapError(errors.ErrCodeConfigError, "configuration is invalid", err)
	}
	if err := config.ResolveEnv(cfg); err != nil {
		return 0, errors.WrapError(errors.ErrCodeConfigError, "failed to resolve environment variables", err)
	}

	newSess := session.New(cfg.Database)
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := newSess.Connect(connectCtx); err != nil {
		return 0, err
	}

	oldSess := r.sess
	r.cfg = cfg
	r.sess = newSess
	r.engine.Store(engine.New(newSess, cfg.Templates))

	if oldSess != nil {
		if err := oldSess.Close(); err != nil {
			r.log.Warnf("Error closing previous session: %v", err)
		}
	}

	r.log.Successf("Configuration reloaded, %d template(s)", cfg.Templates.Len())
	return cfg.Templates.Len(), nil
}

// Stop shuts the server down gracefully and closes the session.
func (r *Runtime) Stop() error {
	r.log.Infof("Shutting down")

	var firstErr error
	if r.server != nil {
		if err := r.server.Stop(); err != nil {
			firstErr = err
		}
	}

	r.reloadMu.Lock()
	sess := r.sess
	r.reloadMu.Unlock()
	if sess != nil {
		if err := sess.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
