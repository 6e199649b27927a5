package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/intake"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/notify"
)

// registerRoutes sets up all gateway routes on the Gin router.
func registerRoutes(router *gin.Engine, deps Deps) {
	router.GET("/", handleRoot(deps))
	router.GET("/healthz", handleHealth(deps))
	router.GET("/conversation-token", handleConversationToken(deps))
	router.POST("/upload-session", handleUploadSession(deps))
	router.GET("/blueprint/:id", handleBlueprint(deps))
	router.POST("/profile", handleProfile(deps))
	router.GET("/email/test", handleEmailTest(deps))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	router.NoRoute(handleStatic(deps.StaticDir))
}

const (
	// serviceName is reported by the root liveness route.
	serviceName       = "AI Voice Coach Backend"
	healthPingTimeout = 2 * time.Second
)

func handleRoot(deps Deps) gin.HandlerFunc {
	var frontend string
	if len(deps.AllowedOrigins) > 0 {
		frontend = deps.AllowedOrigins[0]
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"service":  serviceName,
			"time":     time.Now().UTC().Format(time.RFC3339Nano),
			"frontend": frontend,
		})
	}
}

func handleHealth(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"ok":          true,
			"time":        time.Now().UTC().Format(time.RFC3339Nano),
			"persistence": deps.Profiles.Configured(),
		}
		if deps.Profiles.Configured() {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
			defer cancel()
			body["database"] = "ok"
			if err := deps.Profiles.Ping(ctx); err != nil {
				logging.From(ctx).Warn("profile database ping failed", "error", err)
				body["database"] = "unreachable"
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

func handleConversationToken(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Query("name"))
		tok, err := deps.Tokens.Token(c.Request.Context(), name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": tok})
	}
}

func handleUploadSession(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := intake.Request{
			Email:      c.PostForm("email"),
			Transcript: c.PostForm("transcript"),
			BaseURL:    requestBaseURL(c.Request),
		}
		if fh, err := c.FormFile("audio"); err == nil {
			audio, err := readUpload(fh)
			if err != nil {
				logging.From(c.Request.Context()).Warn("ignoring unreadable audio upload", "error", err)
			} else {
				req.Audio = &intake.Audio{Data: audio, Ext: filepath.Ext(fh.Filename)}
			}
		}

		res, err := deps.Intake.Intake(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":                   true,
			"scheduled_in_seconds": res.ScheduledInSeconds,
			"blueprint_id":         res.BlueprintID,
			"blueprint_url":        res.BlueprintURL,
		})
	}
}

func handleBlueprint(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := deps.Blueprints.Get(c.Param("id"))
		if !ok {
			c.String(http.StatusNotFound, "Blueprint not found")
			return
		}
		c.HTML(http.StatusOK, "blueprint.html", gin.H{
			"Email":   rec.Email,
			"Created": rec.CreatedAt.Format(time.RFC3339),
			"Content": rec.Content,
		})
	}
}

func handleProfile(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, &errs.ValidationError{Field: "body", Message: "Invalid JSON"})
			return
		}
		if err := deps.Profiles.Upsert(c.Request.Context(), body); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleEmailTest(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		to := strings.TrimSpace(c.Query("to"))
		if to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Provide ?to=email@example.com"})
			return
		}
		err := deps.Mailer.Send(c.Request.Context(), notify.TestMessage(to))
		if err != nil {
			logging.From(c.Request.Context()).Warn("test email failed", "to", to, "error", err)
		}
		c.JSON(http.StatusOK, gin.H{"ok": err == nil})
	}
}

// handleStatic serves files from dir for unmatched paths.
func handleStatic(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == "" || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(path)
	}
}

// writeError maps the error taxonomy onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var (
		validation *errs.ValidationError
		config     *errs.ConfigurationError
		upstream   *errs.UpstreamExhaustedError
		persist    *errs.PersistenceError
	)
	log := logging.From(c.Request.Context())

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &config):
		log.Error("missing configuration", "missing", config.Missing)
		c.JSON(http.StatusInternalServerError, gin.H{"error": config.Error()})
	case errors.As(err, &upstream):
		log.Warn("token upstream exhausted", "attempts", len(upstream.Attempts))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "ElevenLabs upstream failed",
			"message": upstream.Error(),
			"details": gin.H{"attempts": upstream.Attempts},
		})
	case errors.As(err, &persist):
		log.Error("persistence failed", "op", persist.Op, "error", persist.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": persist.Error()})
	default:
		log.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requestBaseURL returns scheme://host for r, honouring X-Forwarded-Proto.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
