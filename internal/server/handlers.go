package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorResponse{Error: msg})
}

func (s *Server) getBoard(c echo.Context) error {
	if c.Param("id") != s.board.ID {
		return jsonError(c, http.StatusNotFound, "board not found")
	}
	return c.JSON(http.StatusOK, s.View())
}

// View returns the board with its column-grouped card listing.
func (s *Server) View() board.BoardView {
	return board.BoardView{
		Board:   s.board,
		Columns: s.store.Columns(),
		Cards:   s.store.Cards(),
	}
}

type createRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

func (s *Server) createCard(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}

	status := board.ColumnID(req.Status)
	if status.Validate() != nil {
		status = board.ColumnTodo
	}
	input := board.CardInput{Title: strings.TrimSpace(*req.Title), Status: status}
	if req.Description != nil {
		input.Description = *req.Description
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	card, err := s.store.Create(status, input, "")
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err.Error())
	}
	s.persistColumns(c.Request().Context(), status)
	s.mutated("create", card.ID)
	return c.JSON(http.StatusCreated, card)
}

func (s *Server) updateCard(c echo.Context) error {
	id := c.Param("id")

	var patch board.CardPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := patch.Validate(); err != nil {
		return jsonError(c, http.StatusBadRequest, err.Error())
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.store.Get(id)
	if !ok {
		return jsonError(c, http.StatusNotFound, "card not found")
	}

	var card *board.Card
	if patch.Order != nil {
		target := current.Status
		if patch.Status != nil {
			target = *patch.Status
		}
		s.store.Update(id, board.CardPatch{Title: patch.Title, Description: patch.Description})
		card, _ = s.store.Move(id, target, *patch.Order)
	} else {
		card, _ = s.store.Update(id, patch)
	}
	if card == nil {
		return jsonError(c, http.StatusNotFound, "card not found")
	}

	s.persistColumns(c.Request().Context(), current.Status, card.Status)
	s.mutated("update", id)
	return c.JSON(http.StatusOK, card)
}

func (s *Server) deleteCard(c echo.Context) error {
	id := c.Param("id")

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	card, ok := s.store.Delete(id)
	if !ok {
		return jsonError(c, http.StatusNotFound, "card not found")
	}

	ctx := c.Request().Context()
	if s.persist != nil {
		if err := s.persist.DeleteCard(ctx, id); err != nil {
			s.persistFailed(err, id)
		}
	}
	s.persistColumns(ctx, card.Status)
	s.mutated("delete", id)
	return c.NoContent(http.StatusNoContent)
}

// persistColumns writes every card of the given columns through to Redis.
// Rebalancing can renumber a whole column, so single-card writes are not
// enough.
func (s *Server) persistColumns(ctx context.Context, columns ...board.ColumnID) {
	if s.persist == nil {
		return
	}
	var cards []*board.Card
	seen := make(map[board.ColumnID]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			continue
		}
		seen[col] = true
		cards = append(cards, s.store.Read(col)...)
	}
	if len(cards) == 0 {
		return
	}
	if err := s.persist.SaveCards(ctx, cards...); err != nil {
		s.persistFailed(err, "")
	}
}

func (s *Server) persistFailed(err error, cardID string) {
	s.metrics.PersistErrors.Inc()
	s.logger.WithField("card_id", cardID).WithError(err).Warn("Redis write-through failed")
}

func (s *Server) mutated(op, cardID string) {
	s.metrics.CardMutations.WithLabelValues(op).Inc()
	s.logger.WithFields(log.Fields{"op": op, "card_id": cardID}).Debug("Card mutated")
}
