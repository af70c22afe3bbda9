package commands

import (
	"context"

	"github.com/dyluth/kanban/internal/dnd"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/pkg/board"
	"github.com/spf13/cobra"
)

var (
	addColumn       string
	addDescription  string
	editTitle       string
	editDescription string
	editColumn      string
	moveColumn      string
	moveOrder       int
	moveOnto        string
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Create, edit, move and delete cards",
	Long: `Change cards on the board. Every change is applied on the server and
broadcast to the other connected clients.

Card IDs may be shortened to any unique prefix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cardAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Add a card to the end of a column",
	Example: `  kanban card add "Write release notes"
  kanban card add "Fix login" --column in_progress --description "Safari only"`,
	Args: cobra.ExactArgs(1),
	RunE: runCardAdd,
}

var cardEditCmd = &cobra.Command{
	Use:   "edit CARD_ID",
	Short: "Change a card's title, description or column",
	Long: `Change a card's title, description or column. Only the flags given are
changed. Changing the column appends the card to the end of the new column;
use "kanban card move" to choose a position.`,
	Example: `  kanban card edit 3f2a --title "Fix login on Safari"
  kanban card edit 3f2a --column done`,
	Args: cobra.ExactArgs(1),
	RunE: runCardEdit,
}

var cardMoveCmd = &cobra.Command{
	Use:   "move CARD_ID",
	Short: "Move a card to a column position or onto another card",
	Long: `Move a card within its column or to another column.

  --column COL            move to the end of COL
  --column COL --order N  move to position N of COL (0 is the top)
  --onto CARD_ID          take the position of another card, as a drag and
                          drop onto that card would`,
	Example: `  kanban card move 3f2a --column done
  kanban card move 3f2a --column todo --order 0
  kanban card move 3f2a --onto 9b01`,
	Args: cobra.ExactArgs(1),
	RunE: runCardMove,
}

var cardRmCmd = &cobra.Command{
	Use:     "rm CARD_ID",
	Aliases: []string{"delete"},
	Short:   "Delete a card",
	Args:    cobra.ExactArgs(1),
	RunE:    runCardRm,
}

func init() {
	cardAddCmd.Flags().StringVar(&addColumn, "column", string(board.ColumnTodo), "Column to add the card to")
	cardAddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Card description")

	cardEditCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	cardEditCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description")
	cardEditCmd.Flags().StringVar(&editColumn, "column", "", "New column (card goes to the end)")

	cardMoveCmd.Flags().StringVar(&moveColumn, "column", "", "Target column")
	cardMoveCmd.Flags().IntVar(&moveOrder, "order", -1, "Target position in the column (default: end)")
	cardMoveCmd.Flags().StringVar(&moveOnto, "onto", "", "Drop onto this card")

	cardCmd.AddCommand(cardAddCmd, cardEditCmd, cardMoveCmd, cardRmCmd)
	rootCmd.AddCommand(cardCmd)
}

func parseColumnFlag(value string) (board.ColumnID, error) {
	col, err := board.ParseColumn(value)
	if err != nil {
		return "", printer.Error(
			"invalid column",
			err.Error(),
			[]string{"Valid columns: todo, in_progress, done"},
		)
	}
	return col, nil
}

func runCardAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	col, err := parseColumnFlag(addColumn)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := connectSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	card, err := session.Engine.CreateCard(ctx, col, board.CardInput{Title: args[0], Description: addDescription})
	if err != nil {
		return printer.Error("failed to add card", err.Error(), nil)
	}

	printer.Success("Added card %s to %s\n", card.ID, col.Title())
	return nil
}

func runCardEdit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var patch board.CardPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &editTitle
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &editDescription
	}
	if cmd.Flags().Changed("column") {
		col, err := parseColumnFlag(editColumn)
		if err != nil {
			return err
		}
		patch.Status = &col
	}
	if patch.IsEmpty() {
		return printer.Error(
			"nothing to change",
			"No --title, --description or --column given.",
			[]string{"kanban card edit CARD_ID --title \"New title\""},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := connectSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	id, err := resolveCard(session, args[0])
	if err != nil {
		return err
	}
	if _, err := session.Engine.UpdateCard(ctx, id, patch); err != nil {
		return printer.Error("failed to update card", err.Error(), nil)
	}

	printer.Success("Updated card %s\n", id)
	return nil
}

func runCardMove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if (moveOnto == "") == (moveColumn == "") {
		return printer.Error(
			"invalid move",
			"Give exactly one of --column or --onto.",
			[]string{"kanban card move CARD_ID --column done", "kanban card move CARD_ID --onto OTHER_ID"},
		)
	}
	var col board.ColumnID
	if moveColumn != "" {
		var err error
		if col, err = parseColumnFlag(moveColumn); err != nil {
			return err
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := connectSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	id, err := resolveCard(session, args[0])
	if err != nil {
		return err
	}

	var moved *board.Card
	switch {
	case moveOnto != "":
		overID, err := resolveCard(session, moveOnto)
		if err != nil {
			return err
		}
		moved, err = session.Engine.DropCard(ctx, id, overID)
		if err != nil {
			return printer.Error("failed to move card", err.Error(), nil)
		}
	case moveOrder < 0:
		moved, err = session.Engine.DropCard(ctx, id, dnd.DroppableForColumn(col))
		if err != nil {
			return printer.Error("failed to move card", err.Error(), nil)
		}
	default:
		moved, err = session.Engine.MoveCard(ctx, id, col, moveOrder)
		if err != nil {
			return printer.Error("failed to move card", err.Error(), nil)
		}
	}

	if moved == nil {
		printer.Info("Card %s is already there\n", id)
		return nil
	}
	printer.Success("Moved card %s to %s, position %d\n", id, moved.Status.Title(), moved.Order)
	return nil
}

func runCardRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := connectSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	id, err := resolveCard(session, args[0])
	if err != nil {
		return err
	}
	if err := session.Engine.DeleteCard(ctx, id); err != nil {
		return printer.Error("failed to delete card", err.Error(), nil)
	}

	printer.Success("Deleted card %s\n", id)
	return nil
}
