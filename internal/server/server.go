// Package server exposes the chat, document and account operations over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/internal/auth"
	"github.com/mfenderov/ragchat/internal/documents"
	"github.com/mfenderov/ragchat/pkg/models"
)

const identityKey = "identity"

// Accounts registers users and resolves bearer tokens.
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Grant, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.Grant, error)
	Authenticate(ctx context.Context, header string) (models.Identity, error)
}

// Documents manages a caller's stored files.
type Documents interface {
	Upload(ctx context.Context, id models.Identity, req documents.UploadRequest) (*documents.UploadResult, error)
	List(ctx context.Context, id models.Identity) ([]models.DocumentInfo, error)
	Delete(ctx context.Context, id models.Identity, req documents.DeleteRequest) (*documents.DeleteResult, error)
}

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, id models.Identity, req models.ChatRequest) (*models.ChatResponse, error)
}

// Recorder observes completed requests.
type Recorder interface {
	Request(route, status string)
}

// Options configures a Server. Metrics may be nil.
type Options struct {
	Accounts    Accounts
	Documents   Documents
	Asker       Asker
	Recorder    Recorder
	Metrics     http.Handler
	CORSOrigins []string
}

// Server is the HTTP gateway.
type Server struct {
	echo *echo.Echo
	opts Options
}

// New builds the router.
func New(opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handleError

	s := &Server{echo: e, opts: opts}

	e.Use(s.observe)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)

	// Route-level so unrouted paths still answer 404 rather than 401.
	e.POST("/chat", s.chat, s.requireIdentity)
	e.GET("/documents", s.listDocuments, s.requireIdentity)
	e.POST("/upload", s.upload, s.requireIdentity)
	e.POST("/delete", s.deleteDocument, s.requireIdentity)

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) register(c echo.Context) error {
	var req auth.RegisterRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	grant, err := s.opts.Accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, grant)
}

func (s *Server) login(c echo.Context) error {
	var req auth.LoginRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	grant, err := s.opts.Accounts.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grant)
}

func (s *Server) chat(c echo.Context) error {
	var req models.ChatRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if s.opts.Asker == nil {
		return apierr.New(apierr.Configuration, "Chat is not configured")
	}
	resp, err := s.opts.Asker.Ask(c.Request().Context(), identity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.opts.Documents.List(c.Request().Context(), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) upload(c echo.Context) error {
	var req documents.UploadRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	res, err := s.opts.Documents.Upload(c.Request().Context(), identity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) deleteDocument(c echo.Context) error {
	var req documents.DeleteRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	res, err := s.opts.Documents.Delete(c.Request().Context(), identity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// requireIdentity resolves the bearer token before the handler runs.
func (s *Server) requireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.opts.Accounts.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return err
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

// observe renders errors itself so the final status is known when the
// request is counted.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		if s.opts.Recorder != nil {
			s.opts.Recorder.Request(route, strconv.Itoa(status))
		}
		slog.Debug("request",
			"method", c.Request().Method,
			"route", route,
			"status", status,
			"duration", time.Since(start))
		return nil
	}
}

func identity(c echo.Context) models.Identity {
	id, _ := c.Get(identityKey).(models.Identity)
	return id
}

// decode reads a JSON body. An empty body leaves v at its zero value so
// field validation reports what is missing.
func decode(c echo.Context, v interface{}) error {
	err := c.Echo().JSONSerializer.Deserialize(c, v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierr.Wrap(apierr.Validation, "Invalid JSON body", err)
}

func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apierr.Status(err)
	msg := apierr.PublicMessage(err)

	var he *echo.HTTPError
	if apierr.KindOf(err) == apierr.Internal && errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
	}

	req := c.Request()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
	} else {
		slog.Debug("request rejected", "method", req.Method, "path", req.URL.Path, "status", status, "error", err)
	}

	if req.Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]string{"error": msg})
}
