package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dyluth/kanban/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusErrorMatchesNotFound(t *testing.T) {
	err := &StatusError{Code: http.StatusNotFound, Message: "card not found"}
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, board.ErrNotFound))
	assert.False(t, IsNotFound(&StatusError{Code: http.StatusBadRequest}))
	assert.Equal(t, "server returned 404: card not found", err.Error())
	assert.Equal(t, "server returned 500 Internal Server Error", (&StatusError{Code: 500}).Error())
}

func TestClientRequests(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotBody = nil
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/boards/default":
			json.NewEncoder(w).Encode(board.BoardView{
				Board: board.DefaultBoard(),
				Cards: []*board.Card{{ID: "1", Title: "a", Status: board.ColumnTodo}},
			})
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(board.Card{ID: "srv", Title: "new", Status: board.ColumnDone, Order: 3})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/cards/1":
			json.NewEncoder(w).Encode(board.Card{ID: "1", Title: "patched", Status: board.ColumnTodo})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/cards/1":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"card not found"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	ctx := context.Background()

	t.Run("get board", func(t *testing.T) {
		view, err := c.GetBoard(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, "Realtime Kanban", view.Board.Name)
		require.Len(t, view.Cards, 1)
	})

	t.Run("create", func(t *testing.T) {
		card, err := c.CreateCard(ctx, board.CardInput{Title: "new", Status: board.ColumnDone})
		require.NoError(t, err)
		assert.Equal(t, "srv", card.ID)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/api/cards", gotPath)
		assert.Equal(t, "new", gotBody["title"])
	})

	t.Run("patch sends only present fields", func(t *testing.T) {
		card, err := c.UpdateCard(ctx, "1", board.CardPatch{Status: board.ColumnPtr(board.ColumnTodo), Order: board.Int(0)})
		require.NoError(t, err)
		assert.Equal(t, "patched", card.Title)
		assert.Equal(t, map[string]any{"status": "todo", "order": float64(0)}, gotBody)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.DeleteCard(ctx, "1"))
		assert.Equal(t, http.MethodDelete, gotMethod)
	})

	t.Run("not found", func(t *testing.T) {
		err := c.DeleteCard(ctx, "ghost")
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "card not found")
	})
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).GetBoard(context.Background(), "default")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestClientErrorBodyNotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetBoard(context.Background(), "default")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Empty(t, statusErr.Message)
	assert.Equal(t, "server returned 502 Bad Gateway", err.Error())
}
