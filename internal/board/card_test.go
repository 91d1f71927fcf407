// Package board tests cover the workflow state machine and card invariants.
package board

import "testing"

// TestValidateTransitionGrid checks every source/destination pair
// against the workflow rule.
func TestValidateTransitionGrid(t *testing.T) {
	states := []State{StateToDo, StateInProgress, StateToBeRevised, StateDone}
	allowed := map[[2]State]bool{
		{StateToDo, StateInProgress}:        true,
		{StateInProgress, StateToBeRevised}: true,
		{StateInProgress, StateDone}:        true,
		{StateToBeRevised, StateInProgress}: true,
		{StateToBeRevised, StateDone}:       true,
	}
	for _, from := range states {
		for _, to := range states {
			err := ValidateTransition(from, to)
			if allowed[[2]State{from, to}] {
				if err != nil {
					t.Fatalf("%s -> %s should be allowed, got %v", from, to, err)
				}
				continue
			}
			if err == nil {
				t.Fatalf("%s -> %s should be rejected", from, to)
			}
		}
	}
}

// TestParseList maps wire keywords to states case-insensitively.
func TestParseList(t *testing.T) {
	for in, want := range map[string]State{
		"todo":        StateToDo,
		"inprogress":  StateInProgress,
		"ToBeRevised": StateToBeRevised,
		"DONE":        StateDone,
	} {
		got, err := ParseList(in)
		if err != nil || got != want {
			t.Fatalf("ParseList(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseList("backlog"); err == nil {
		t.Fatalf("expected unknown list to be rejected")
	}
}

// TestCardHistory confirms a new card starts in todo and renders its
// history as an arrow chain.
func TestCardHistory(t *testing.T) {
	c := NewCard("c1", "a job")
	if c.State() != StateToDo {
		t.Fatalf("new card should be in todo, got %v", c.State())
	}
	if c.HistoryLine() != "ToDo" {
		t.Fatalf("unexpected history: %q", c.HistoryLine())
	}
	c.History = append(c.History, StateInProgress, StateDone)
	if c.HistoryLine() != "ToDo -> InProgress -> Done" {
		t.Fatalf("unexpected history: %q", c.HistoryLine())
	}
	if c.State() != StateDone {
		t.Fatalf("state should follow last history entry, got %v", c.State())
	}
}
