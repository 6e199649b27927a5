// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/NBMedia786/chabot/internal/blueprint"
	"github.com/NBMedia786/chabot/internal/intake"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/notify"
	"github.com/NBMedia786/chabot/internal/profile"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	shutdownTimeout = 10 * time.Second
	// maxUploadBytes bounds multipart bodies kept in memory.
	maxUploadBytes = 32 << 20
)

// TokenIssuer mints conversation tokens.
type TokenIssuer interface {
	Token(ctx context.Context, participantName string) (string, error)
}

// SessionIntake accepts uploaded sessions.
type SessionIntake interface {
	Intake(ctx context.Context, req intake.Request) (*intake.Result, error)
}

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Tokens     TokenIssuer
	Intake     SessionIntake
	Blueprints blueprint.Store
	Profiles   *profile.Service
	Mailer     notify.Sender
	Gatherer   prometheus.Gatherer

	AllowedOrigins []string
	StaticDir      string
}

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Deps Deps
	Port int
	Out  io.Writer
	// Listener overrides Port when set.
	Listener net.Listener
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.Tokens == nil || deps.Intake == nil || deps.Blueprints == nil {
		return nil, fmt.Errorf("server: tokens, intake, and blueprints are required")
	}
	if deps.Profiles == nil {
		deps.Profiles = profile.NewService(nil)
	}
	if deps.Mailer == nil {
		deps.Mailer = notify.Chain(nil)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.Use(gin.Recovery(), requestLogger(), cors(deps.AllowedOrigins))

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, deps)
	return router, nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully and returns once in-flight requests have finished.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 5000
	}
	router, err := NewRouter(opts.Deps)
	if err != nil {
		return err
	}

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Gateway listening on http://localhost:%d\n", opts.Port)
	}
	logging.From(ctx).Info("http server starting", "addr", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Shutdown waits for active requests to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	<-serveErr
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
