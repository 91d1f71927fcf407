package board

import (
	"fmt"
	"strings"
)

// State names a workflow list. The serialized form matches the record
// files written by earlier versions of the service, so it must not change.
type State string

const (
	StateToDo        State = "ToDo"
	StateInProgress  State = "InProgress"
	StateToBeRevised State = "ToBeRevised"
	StateDone        State = "Done"
)

// ParseList maps a wire-level list keyword to its workflow state.
// Keywords are matched case-insensitively.
func ParseList(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StateToDo, nil
	case "inprogress":
		return StateInProgress, nil
	case "toberevised":
		return StateToBeRevised, nil
	case "done":
		return StateDone, nil
	}
	return "", fmt.Errorf("%w: unknown list %q", ErrInvalidArgument, s)
}

// ListName returns the wire-level keyword for a state.
func (s State) ListName() string {
	return strings.ToLower(string(s))
}

// ValidateTransition checks the workflow rule for a single move:
// todo -> inprogress; inprogress -> {toberevised, done};
// toberevised -> {inprogress, done}; done is terminal and nothing
// moves back into todo. Self-moves are rejected as invalid arguments.
func ValidateTransition(from, to State) error {
	if from == to {
		return fmt.Errorf("%w: source and destination are the same list", ErrInvalidArgument)
	}
	if from == StateDone {
		return fmt.Errorf("%w: cards in done cannot be moved", ErrInvalidTransition)
	}
	if to == StateToDo {
		return fmt.Errorf("%w: cards cannot be moved back to todo", ErrInvalidTransition)
	}
	if from == StateToDo && to != StateInProgress {
		return fmt.Errorf("%w: cards in todo can only be moved to inprogress", ErrInvalidTransition)
	}
	return nil
}

// Card is a unit of work. The description is immutable after creation
// and History is append-only; the current workflow list is always the
// last history entry.
type Card struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	History     []State `json:"story"`
}

// NewCard creates a card in the todo list.
func NewCard(name, description string) *Card {
	return &Card{
		Name:        name,
		Description: description,
		History:     []State{StateToDo},
	}
}

// State returns the card's current workflow state.
func (c *Card) State() State {
	return c.History[len(c.History)-1]
}

// HistoryLine renders the card's full history as
// "ToDo -> InProgress -> ... -> Done".
func (c *Card) HistoryLine() string {
	parts := make([]string, len(c.History))
	for i, s := range c.History {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

// Detail renders the card's name, description, and current list.
func (c *Card) Detail() string {
	return fmt.Sprintf("Name: %s\nDescription: %s\nList: %s\n", c.Name, c.Description, c.State())
}
