// Package dispatch turns one decoded request line into one reply
// line. Domain errors stop at this boundary: whatever goes wrong, the
// caller gets readable text and the connection stays up.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/alessiodelgadillo/Worth/internal/board"
	"github.com/alessiodelgadillo/Worth/internal/chat"
	"github.com/alessiodelgadillo/Worth/internal/pool"
	"github.com/alessiodelgadillo/Worth/internal/presence"
	"github.com/alessiodelgadillo/Worth/internal/session"
	"github.com/alessiodelgadillo/Worth/internal/store"
)

// Dispatcher executes board commands on behalf of the connection
// multiplexer. It never blocks on network I/O itself: replies travel
// back through the multiplexer and chat announcements are
// fire-and-forget.
type Dispatcher struct {
	Board    *board.Registry
	Sessions *session.Registry
	Hub      *presence.Hub
	Store    *store.Store
	Pool     *pool.Pool
	ChatPort int
	Announce chat.AnnounceFunc
	Log      *slog.Logger
}

// Handle parses and executes one request from the given endpoint and
// returns the reply payload. Replies are always non-empty.
func (d *Dispatcher) Handle(req string, from netip.AddrPort) string {
	fields := strings.Fields(req)
	if len(fields) == 0 {
		return "Command not found"
	}
	cmd, args := fields[0], fields[1:]

	var reply string
	var err error
	switch cmd {
	case "login":
		reply, err = d.login(args, from)
	case "logout":
		reply, err = d.logout(from)
	case "list_projects":
		reply, err = d.listProjects(from)
	case "create_project":
		reply, err = d.createProject(args, from)
	case "add_member":
		reply, err = d.addMember(args, from)
	case "show_members":
		reply, err = d.inProject(args, from, 1, func(p *board.Project) (string, error) {
			return p.RenderMembers(), nil
		})
	case "show_cards":
		reply, err = d.inProject(args, from, 1, func(p *board.Project) (string, error) {
			return p.RenderCards(), nil
		})
	case "show_card":
		reply, err = d.inProject(args, from, 2, func(p *board.Project) (string, error) {
			return d.showCard(p, args[1])
		})
	case "add_card":
		reply, err = d.inProject(args, from, 3, func(p *board.Project) (string, error) {
			return d.addCard(p, args[1], strings.Join(args[2:], " "))
		})
	case "move_card":
		reply, err = d.inProject(args, from, 4, func(p *board.Project) (string, error) {
			return d.moveCard(p, args[1], args[2], args[3])
		})
	case "get_card_history":
		reply, err = d.inProject(args, from, 2, func(p *board.Project) (string, error) {
			return d.cardHistory(p, args[1])
		})
	case "cancel_project":
		reply, err = d.inProject(args, from, 1, d.cancelProject)
	case "join_chat":
		reply, err = d.inProject(args, from, 1, func(p *board.Project) (string, error) {
			return fmt.Sprintf("%s %d", p.Group, p.Port), nil
		})
	default:
		return "Command not found"
	}
	if err != nil {
		if errors.Is(err, board.ErrUnauthorized) {
			return "Access denied"
		}
		return err.Error()
	}
	return reply
}

// caller resolves the endpoint to its logged-in user. Every command
// except login requires an authenticated caller.
func (d *Dispatcher) caller(from netip.AddrPort) (string, error) {
	user, ok := d.Sessions.Lookup(from)
	if !ok {
		return "", fmt.Errorf("%w: you must log in first", board.ErrUnauthorized)
	}
	return user, nil
}

// inProject runs a project-scoped command after checking argument
// count and project membership of the caller.
func (d *Dispatcher) inProject(args []string, from netip.AddrPort, want int, fn func(*board.Project) (string, error)) (string, error) {
	if len(args) < want {
		return "", fmt.Errorf("%w: missing arguments", board.ErrInvalidArgument)
	}
	user, err := d.caller(from)
	if err != nil {
		return "", err
	}
	p, ok := d.Board.Project(args[0])
	if !ok {
		return "", fmt.Errorf("%w: project %s", board.ErrNotFound, args[0])
	}
	if !p.IsMember(user) {
		return "", board.ErrUnauthorized
	}
	return fn(p)
}

func (d *Dispatcher) login(args []string, from netip.AddrPort) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("%w: usage: login <user> <password>", board.ErrInvalidArgument)
	}
	name := args[0]
	if err := d.Board.Login(name, args[1], from); err != nil {
		return "", err
	}
	d.Sessions.Bind(from, name)
	d.Hub.Broadcast(d.Board.PresenceMap())
	return name + " logged in", nil
}

func (d *Dispatcher) logout(from netip.AddrPort) (string, error) {
	name, err := d.Board.Logout(from)
	if err != nil {
		return "", err
	}
	d.Sessions.Clear(from)
	d.Hub.Broadcast(d.Board.PresenceMap())
	return name + " logged out", nil
}

func (d *Dispatcher) listProjects(from netip.AddrPort) (string, error) {
	user, err := d.caller(from)
	if err != nil {
		return "", err
	}
	names := d.Board.ProjectsFor(user)
	if len(names) == 0 {
		return "At the moment there is no project", nil
	}
	return strings.Join(names, "\n"), nil
}

func (d *Dispatcher) createProject(args []string, from netip.AddrPort) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("%w: usage: create_project <name>", board.ErrInvalidArgument)
	}
	user, err := d.caller(from)
	if err != nil {
		return "", err
	}
	group := d.Pool.Acquire()
	p, err := d.Board.CreateProject(args[0], user, group, d.ChatPort)
	if err != nil {
		d.Pool.Release(group)
		return "", err
	}
	d.persist(d.Store.SaveMembers(p))
	return "Project " + p.Name + " created", nil
}

func (d *Dispatcher) addMember(args []string, from netip.AddrPort) (string, error) {
	return d.inProject(args, from, 2, func(p *board.Project) (string, error) {
		if _, ok := d.Board.User(args[1]); !ok {
			return "", fmt.Errorf("%w: username %s", board.ErrNotFound, args[1])
		}
		if err := p.AddMember(args[1]); err != nil {
			return "", err
		}
		d.persist(d.Store.SaveMembers(p))
		return args[1] + " added to " + p.Name, nil
	})
}

func (d *Dispatcher) showCard(p *board.Project, name string) (string, error) {
	c, ok := p.Card(name)
	if !ok {
		return "", fmt.Errorf("%w: card %s", board.ErrNotFound, name)
	}
	return c.Detail(), nil
}

func (d *Dispatcher) addCard(p *board.Project, name, description string) (string, error) {
	c, err := p.AddCard(name, description)
	if err != nil {
		return "", err
	}
	d.persist(d.Store.SaveCard(p.Name, c))
	return "Card " + name + " added to " + p.Name, nil
}

func (d *Dispatcher) moveCard(p *board.Project, name, fromList, toList string) (string, error) {
	src, err := board.ParseList(fromList)
	if err != nil {
		return "", err
	}
	dst, err := board.ParseList(toList)
	if err != nil {
		return "", err
	}
	c, err := p.MoveCard(name, src, dst)
	if err != nil {
		return "", err
	}
	d.persist(d.Store.SaveCard(p.Name, c))
	d.announce(p, fmt.Sprintf("Card %s moved from %s to %s", name, src.ListName(), dst.ListName()))
	return fmt.Sprintf("Card %s of project %s moved from %q to %q", name, p.Name, src.ListName(), dst.ListName()), nil
}

func (d *Dispatcher) cardHistory(p *board.Project, name string) (string, error) {
	c, ok := p.Card(name)
	if !ok {
		return "", fmt.Errorf("%w: card %s", board.ErrNotFound, name)
	}
	return c.HistoryLine(), nil
}

// cancelProject retires a project once no card sits outside done. The
// close sentinel goes out first so every chat listener terminates,
// then the group address returns to the pool and the snapshot
// directory is deleted.
func (d *Dispatcher) cancelProject(p *board.Project) (string, error) {
	if !p.Done() {
		return "", fmt.Errorf("%w: the project can be cancelled only when every card is done", board.ErrInvalidArgument)
	}
	d.announce(p, "close")
	d.Board.RemoveProject(p.Name)
	d.Pool.Release(p.Group)
	d.persist(d.Store.DeleteProject(p.Name))
	return "Project " + p.Name + " cancelled", nil
}

func (d *Dispatcher) announce(p *board.Project, text string) {
	if d.Announce == nil {
		return
	}
	if err := d.Announce(p.GroupAddr(), text); err != nil {
		d.Log.Warn("chat announcement failed", "project", p.Name, "error", err)
	}
}

// persist logs a failed snapshot write and moves on: in-memory state
// is the source of truth during a run, persistence is best-effort
// durability.
func (d *Dispatcher) persist(err error) {
	if err != nil {
		d.Log.Warn("snapshot write failed", "error", err)
	}
}
