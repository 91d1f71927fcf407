package board

import (
	"fmt"
	"net/netip"
	"strings"
)

// Project is a named workspace: an ordered member list (creator first),
// the cards moving through the workflow, and the multicast address of
// the project chat. Cards live in a single ordered slice; the list a
// card belongs to is derived from its history, which keeps the
// one-list-per-card invariant structural.
type Project struct {
	Name    string
	Members []string
	Cards   []*Card

	// Chat group address. Assigned from the address pool at creation
	// and re-assigned fresh after recovery; never persisted.
	Group netip.Addr
	Port  int
}

// NewProject creates a project with the creator as its first member.
func NewProject(name, creator string, group netip.Addr, port int) *Project {
	return &Project{
		Name:    name,
		Members: []string{creator},
		Group:   group,
		Port:    port,
	}
}

// IsMember reports whether user is a member of the project.
func (p *Project) IsMember(user string) bool {
	for _, m := range p.Members {
		if m == user {
			return true
		}
	}
	return false
}

// AddMember appends a member, rejecting duplicates.
func (p *Project) AddMember(user string) error {
	if p.IsMember(user) {
		return fmt.Errorf("%w: %s is already a member of %s", ErrAlreadyExists, user, p.Name)
	}
	p.Members = append(p.Members, user)
	return nil
}

// Card looks a card up by name across every list.
func (p *Project) Card(name string) (*Card, bool) {
	for _, c := range p.Cards {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// AddCard creates a card in the todo list. Card names are unique
// across the whole project, not just within one list.
func (p *Project) AddCard(name, description string) (*Card, error) {
	if _, ok := p.Card(name); ok {
		return nil, fmt.Errorf("%w: card %s already exists", ErrAlreadyExists, name)
	}
	c := NewCard(name, description)
	p.Cards = append(p.Cards, c)
	return c, nil
}

// MoveCard moves a card from one list to another, validating the
// workflow rule before touching any state. The card must currently be
// in the named source list. On success one entry is appended to the
// card's history.
func (p *Project) MoveCard(name string, from, to State) (*Card, error) {
	if err := ValidateTransition(from, to); err != nil {
		return nil, err
	}
	c, ok := p.Card(name)
	if !ok || c.State() != from {
		return nil, fmt.Errorf("%w: card %s is not in %s", ErrNotFound, name, from.ListName())
	}
	c.History = append(c.History, to)
	return c, nil
}

// CardsIn returns the cards currently in the given list, in creation order.
func (p *Project) CardsIn(state State) []*Card {
	var out []*Card
	for _, c := range p.Cards {
		if c.State() == state {
			out = append(out, c)
		}
	}
	return out
}

// Done reports whether the project can be cancelled: no card may sit
// outside done. A project with no cards at all counts as done.
func (p *Project) Done() bool {
	for _, c := range p.Cards {
		if c.State() != StateDone {
			return false
		}
	}
	return true
}

// RenderMembers renders the member list in insertion order.
func (p *Project) RenderMembers() string {
	return strings.Join(p.Members, " ")
}

// RenderCards renders every card name grouped by workflow list.
func (p *Project) RenderCards() string {
	var b strings.Builder
	appendGroup := func(label string, state State) {
		b.WriteString(label + ":")
		for _, c := range p.CardsIn(state) {
			b.WriteString(" " + c.Name)
		}
		b.WriteString("\n")
	}
	appendGroup("TO DO", StateToDo)
	appendGroup("IN PROGRESS", StateInProgress)
	appendGroup("TO BE REVISED", StateToBeRevised)
	appendGroup("DONE", StateDone)
	return b.String()
}

// GroupAddr returns the chat group endpoint of the project.
func (p *Project) GroupAddr() netip.AddrPort {
	return netip.AddrPortFrom(p.Group, uint16(p.Port))
}
