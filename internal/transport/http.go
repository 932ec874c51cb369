package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"RobinhoodMCP/internal/dispatch"
	"RobinhoodMCP/internal/errs"
	"RobinhoodMCP/internal/session"
)

// StatusSource reports session state for /health without network traffic.
type StatusSource interface {
	Status() session.Snapshot
}

// HTTPServer serves tools over a JSON API.
type HTTPServer struct {
	d      Dispatcher
	status StatusSource
	engine *gin.Engine
	srv    *http.Server
	start  time.Time
}

// NewHTTP builds the engine. debug keeps gin's request logging and debug mode.
func NewHTTP(d Dispatcher, status StatusSource, debug bool) *HTTPServer {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if debug {
		engine.Use(gin.Logger())
	}

	s := &HTTPServer{d: d, status: status, engine: engine, start: time.Now()}
	s.setupRoutes()
	return s
}

func (s *HTTPServer) setupRoutes() {
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/tools", s.listTools)
	s.engine.POST("/tools/:name", s.callTool)
}

// Handler exposes the engine, mainly for tests.
func (s *HTTPServer) Handler() http.Handler { return s.engine }

// Start blocks serving addr until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger().Info("http transport listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight calls.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) getHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	if s.status != nil {
		snap := s.status.Status()
		body["session"] = gin.H{
			"state":         snap.State,
			"authenticated": snap.Authenticated,
			"since":         snap.Since.UTC().Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *HTTPServer) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.d.Tools()})
}

func (s *HTTPServer) callTool(c *gin.Context) {
	args := dispatch.Args{}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": dispatch.Failure{Code: string(errs.KindInvalidArgument), Message: "unreadable body"}})
		return
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": dispatch.Failure{Code: string(errs.KindInvalidArgument), Message: "body must be a JSON object of arguments"}})
			return
		}
	}

	res := s.d.Call(c.Request.Context(), c.Param("name"), args)
	if res.OK() {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(statusFor(res.Error.Code), res)
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch errs.Kind(code) {
	case errs.KindAuthRequired:
		return http.StatusUnauthorized
	case errs.KindInvalidArgument:
		return http.StatusBadRequest
	case errs.KindMethodNotFound:
		return http.StatusNotFound
	case errs.KindUpstream:
		return http.StatusBadGateway
	case errs.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
