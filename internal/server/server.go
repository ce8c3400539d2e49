// Package server serves the browser UI and binds its events to the petition store.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ASHISH26940/petitiondesk/internal/dispatch"
	"github.com/ASHISH26940/petitiondesk/internal/petition"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server is the HTTP front end for the desktop UI.
// It holds the store for REST reads and the dispatcher for bound UI events.
type Server struct {
	echo       *echo.Echo
	store      dispatch.PetitionStore
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// New creates a new Server instance. gatherer may be nil to disable /metrics.
func New(st dispatch.PetitionStore, d *dispatch.Dispatcher, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{
		templates: template.Must(template.New("").Funcs(template.FuncMap{
			"timestamp": petition.FormatTime,
		}).ParseFS(templateFS, "templates/*.html")),
	}
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:       e,
		store:      st,
		dispatcher: d,
		logger:     logger,
	}
	s.registerRoutes(gatherer)
	return s
}

// ServeHTTP makes our Server a standard http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// registerRoutes sets up the HTTP routing for the server.
func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/", s.handleDashboard)
	s.echo.POST("/bind/:event", s.handleBind)

	api := s.echo.Group("/api/petitions")
	api.GET("", s.handleList)
	api.POST("", s.handleCreate)
	api.GET("/:id", s.handleGet)
	api.PATCH("/:id", s.handleUpdate)
	api.DELETE("/:id", s.handleDelete)

	if gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleDashboard(c echo.Context) error {
	return c.Render(http.StatusOK, "dashboard.html", map[string]any{
		"Petitions": s.store.List(),
	})
}

// handleBind forwards a UI event to the dispatcher. The body is a JSON array
// of string arguments; the outcome is always reported in the response body.
func (s *Server) handleBind(c echo.Context) error {
	var args []string
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Arguments must be a JSON array of strings")
		}
	}

	resp := s.dispatcher.Dispatch(dispatch.Command{Event: c.Param("event"), Args: args})
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleList(c echo.Context) error {
	list := s.store.List()
	if list == nil {
		list = []petition.Record{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGet(c echo.Context) error {
	rec, err := s.store.Get(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleCreate(c echo.Context) error {
	body, err := decodeObject(c)
	if err != nil {
		return err
	}
	fields, err := petition.FieldsFromMap(body)
	if err != nil {
		return s.fail(c, err)
	}
	rec, err := s.store.Create(fields)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleUpdate(c echo.Context) error {
	body, err := decodeObject(c)
	if err != nil {
		return err
	}
	patch, err := petition.PatchFromMap(body)
	if err != nil {
		return s.fail(c, err)
	}
	rec, err := s.store.Update(c.Param("id"), patch)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDelete(c echo.Context) error {
	if err := s.store.Delete(c.Param("id")); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func decodeObject(c echo.Context) (map[string]any, error) {
	var body map[string]any
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return body, nil
}

// fail writes err as a JSON error with a status matching its kind.
func (s *Server) fail(c echo.Context, err error) error {
	kind := dispatch.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case dispatch.KindNotFound:
		status = http.StatusNotFound
	case dispatch.KindValidation, dispatch.KindBadRequest:
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, dispatch.Error{Kind: kind, Message: err.Error()})
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logger.Debug("http request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}
