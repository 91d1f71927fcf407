package chat

import (
	"testing"
	"time"
)

func TestSetChannelLookup(t *testing.T) {
	s := NewSet()
	if _, err := s.Channel("planner"); err == nil {
		t.Fatalf("expected error for unjoined project")
	}

	c, _ := loopbackChannel(t)
	s.channels["planner"] = c
	got, err := s.Channel("planner")
	if err != nil || got != c {
		t.Fatalf("Channel() = %v, %v", got, err)
	}
}

func TestCloseAllCancelsReceiveTasks(t *testing.T) {
	s := NewSet()
	a, _ := loopbackChannel(t)
	b, _ := loopbackChannel(t)
	s.channels["one"] = a
	s.channels["two"] = b

	done := make(chan struct{})
	go func() {
		s.CloseAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("CloseAll hung")
	}
	if _, err := s.Channel("one"); err == nil {
		t.Fatalf("channel survived CloseAll")
	}
}
