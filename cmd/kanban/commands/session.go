package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/kanban/internal/client"
	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/logging"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/resolver"
	"github.com/sirupsen/logrus"
)

// clientLogger keeps client commands quiet unless debug logging is asked for.
func clientLogger(cfg *config.KanbanConfig) *logrus.Logger {
	logger := logging.New(cfg.Log)
	if logger.GetLevel() == logrus.InfoLevel {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// openSession opens a client session and waits up to --timeout for it to
// connect and resync. The session is returned even when connecting fails so
// callers can fall back to the local snapshot.
func openSession(ctx context.Context, cfg *config.KanbanConfig) (*client.Session, error) {
	session, err := client.Open(cfg, clientLogger(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	if err := session.Start(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()
	return session, session.WaitConnected(waitCtx)
}

// connectSession is openSession for commands that need the server.
func connectSession(ctx context.Context, cfg *config.KanbanConfig) (*client.Session, error) {
	session, err := openSession(ctx, cfg)
	if err == nil {
		return session, nil
	}
	if session != nil {
		session.Close()
	}
	return nil, unreachable(cfg, err)
}

func unreachable(cfg *config.KanbanConfig, err error) error {
	return printer.ErrorWithContext(
		"server unreachable",
		fmt.Sprintf("Could not sync with the server: %v", err),
		map[string]string{"Server": cfg.Client.ServerURL, "Board": cfg.Board.ID},
		[]string{
			"Start the server:\n  kanban serve",
			"Point at another server:\n  kanban --server http://host:3000 ...",
		},
	)
}

// resolveCard turns a short id into a full card id from the session's store.
func resolveCard(session *client.Session, shortID string) (string, error) {
	fullID, err := resolver.ResolveCardID(session.Store.Cards(), shortID)
	if err == nil {
		return fullID, nil
	}

	var ambiguous *resolver.AmbiguousError
	switch {
	case resolver.IsNotFoundError(err):
		return "", printer.Error(
			fmt.Sprintf("card with ID '%s' not found", shortID),
			"The specified card is not on the board.",
			[]string{"List all cards:\n  kanban board"},
		)
	case errors.As(err, &ambiguous):
		return "", printer.Error(
			fmt.Sprintf("ambiguous card ID '%s'", shortID),
			resolver.FormatAmbiguousError(ambiguous),
			[]string{"Use more characters of the ID"},
		)
	}
	return "", err
}
