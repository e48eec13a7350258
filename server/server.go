package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/hackfest-dev/Hackfest25-45/clients"
	"github.com/hackfest-dev/Hackfest25-45/device"
	"github.com/hackfest-dev/Hackfest25-45/history"
	"github.com/hackfest-dev/Hackfest25-45/orchestrator"
	"github.com/hackfest-dev/Hackfest25-45/sensor"
	"github.com/hackfest-dev/Hackfest25-45/speech"
)

// Backend is the pipeline surface the HTTP API exposes.
type Backend interface {
	Status() orchestrator.Status
	History() []history.Entry
	SetTone(t speech.Tone)
	Sensors() *sensor.Aggregator
}

// Server bundles the Echo router and its dependencies.
type Server struct {
	e        *echo.Echo
	backend  Backend
	enhancer orchestrator.Enhancer
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
	base     context.Context
}

// New builds the router. enhancer may be nil, which disables /enhance-text.
func New(backend Backend, enhancer orchestrator.Enhancer, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		e:        echo.New(),
		backend:  backend,
		enhancer: enhancer,
		log:      log,
		base:     context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The wearable bridge runs on another origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORS())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(logrus.Fields{"method": v.Method, "uri": v.URI, "status": v.Status})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request failed")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))

	s.e.GET("/healthz", s.healthz)
	s.e.GET("/status", s.status)
	s.e.GET("/history", s.history)
	s.e.PUT("/tone", s.setTone)
	s.e.GET("/device", s.deviceStream)
	if enhancer != nil {
		s.e.POST("/enhance-text", s.enhanceText)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.base = ctx
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.backend.Status())
}

func (s *Server) history(c echo.Context) error {
	entries := s.backend.History()
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

type toneReq struct {
	Tone string `json:"tone"`
}

func (s *Server) setTone(c echo.Context) error {
	var in toneReq
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	t, ok := speech.LookupTone(in.Tone)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown tone "+strings.TrimSpace(in.Tone))
	}
	s.backend.SetTone(t)
	return c.JSON(http.StatusOK, toneReq{Tone: string(t)})
}

// deviceStream upgrades to a WebSocket carrying device events.
func (s *Server) deviceStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.WithError(err).Debug("device upgrade failed")
		return nil
	}
	defer conn.Close()

	entry := s.log.WithField("remote", c.RealIP())
	entry.Info("device stream opened")
	if err := device.Consume(s.base, conn, s.backend.Sensors(), entry); err != nil {
		entry.WithError(err).Warn("device stream closed")
		return nil
	}
	entry.Info("device stream closed")
	return nil
}

type enhanceResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Canonical fields.
	Original string `json:"original"`
	Enhanced string `json:"enhanced,omitempty"`
	// Corrected is sent under the legacy name so older clients keep working.
	Corrected string `json:"grammar_corrected,omitempty"`
}

// enhanceText serves the configured enhancer in the canonical schema.
func (s *Server) enhanceText(c echo.Context) error {
	var in clients.EnhanceReq
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, enhanceResp{Error: "invalid body"})
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, enhanceResp{Error: "Input is empty", Original: in.Text})
	}
	tone := speech.ParseTone(in.Tone)

	enh, err := s.enhancer.Enhance(c.Request().Context(), text, string(tone))
	if err != nil {
		s.log.WithError(err).Warn("enhance-text failed")
		return c.JSON(http.StatusBadGateway, enhanceResp{Error: err.Error(), Original: text})
	}
	return c.JSON(http.StatusOK, enhanceResp{
		Success:   true,
		Original:  enh.Original,
		Enhanced:  enh.Enhanced,
		Corrected: enh.Corrected,
	})
}
