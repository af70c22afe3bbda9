package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the JSON body of GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Redis       string `json:"redis,omitempty"`
	Connections int    `json:"connections"`
	Error       string `json:"error,omitempty"`
}

// healthz returns 200 when the server can reach Redis (or runs without it),
// 503 otherwise.
func (s *Server) healthz(c echo.Context) error {
	response := HealthResponse{
		Status:      "healthy",
		Connections: s.hub.RoomSize(s.board.ID),
	}

	if s.persist == nil {
		return c.JSON(http.StatusOK, response)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.persist.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	response.Redis = "connected"
	return c.JSON(http.StatusOK, response)
}
