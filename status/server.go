// Package status exposes the operator surface: a small HTTP API reporting
// the hunter's progress and a websocket feed of live encounter events.
package status

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pkmn-tools/shinyhunt-go/encounterlog"
	"github.com/pkmn-tools/shinyhunt-go/hunt"
	"github.com/pkmn-tools/shinyhunt-go/logger"
)

const defaultEncounterLimit = 50

// HunterStatus is the read-only slice of the hunter the API needs.
type HunterStatus interface {
	Status() hunt.Status
}

// History is the optional persistent encounter store behind /api/encounters.
type History interface {
	Recent(limit int) ([]encounterlog.Record, error)
	Count() (int, error)
	ShinyCount() (int, error)
}

// Server serves the operator API.
type Server struct {
	echo    *echo.Echo
	hunter  HunterStatus
	history History
	hub     *Hub
}

// NewServer wires the API around a hunter, an optional history store (nil
// disables /api/encounters), and an optional websocket hub.
func NewServer(hunter HunterStatus, history History, hub *Hub) *Server {
	s := &Server{
		echo:    echo.New(),
		hunter:  hunter,
		history: history,
		hub:     hub,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/encounters", s.handleEncounters)
	if s.hub != nil {
		s.echo.GET("/ws/encounters", s.handleEncounterFeed)
	}
}

// Start blocks serving on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	logger.Info("Status server listening", "address", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	hunt.Status
	TotalRecorded *int `json:"total_recorded,omitempty"`
	TotalShiny    *int `json:"total_shiny,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	response := statusResponse{Status: s.hunter.Status()}
	if s.history != nil {
		if total, err := s.history.Count(); err == nil {
			response.TotalRecorded = &total
		} else {
			logger.Warn("Encounter count query failed", "error", err)
		}
		if shinies, err := s.history.ShinyCount(); err == nil {
			response.TotalShiny = &shinies
		} else {
			logger.Warn("Shiny count query failed", "error", err)
		}
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleEncounters(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "encounter history is not configured",
		})
	}

	limit := defaultEncounterLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	records, err := s.history.Recent(limit)
	if err != nil {
		logger.Error("Encounter history query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to query encounter history",
		})
	}
	if records == nil {
		records = []encounterlog.Record{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"encounters": records,
		"count":      len(records),
	})
}

func (s *Server) handleEncounterFeed(c echo.Context) error {
	return s.hub.Serve(c.Response(), c.Request())
}
