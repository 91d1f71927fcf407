// Package store persists board state as a directory of JSON snapshot
// records and rebuilds it on startup. The layout on disk is a root
// directory holding the user records as top-level files, plus one
// subdirectory per project containing members.json and one
// <card>.json per card.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/alessiodelgadillo/Worth/internal/board"
	"github.com/alessiodelgadillo/Worth/internal/pool"
)

const membersFile = "members.json"

// Store reads and writes snapshot records under a root directory.
// Writes go through a temp-file rename so a crash mid-write leaves at
// worst one stale record, never a truncated one.
type Store struct {
	fs   afero.Fs
	root string
	log  *slog.Logger
}

// New creates a store rooted at dir on the given filesystem.
func New(fs afero.Fs, dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fs: fs, root: dir, log: log}
}

// SaveUsers writes the full user record file.
func (s *Store) SaveUsers(users []*board.User) error {
	if err := s.fs.MkdirAll(s.root, 0o700); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.root, "users.json"), users)
}

// SaveMembers writes a project's membership record, creating the
// project directory on first save.
func (s *Store) SaveMembers(p *board.Project) error {
	dir := filepath.Join(s.root, p.Name)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(dir, membersFile), p.Members)
}

// SaveCard writes a single card record inside its project directory.
func (s *Store) SaveCard(project string, c *board.Card) error {
	return s.writeJSON(filepath.Join(s.root, project, c.Name+".json"), c)
}

// DeleteProject removes a cancelled project's directory and records.
func (s *Store) DeleteProject(name string) error {
	return s.fs.RemoveAll(filepath.Join(s.root, name))
}

func (s *Store) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, path)
}

// Load reconstructs the registry from the snapshot directory. A
// missing root is a cold start. Every recovered user is forced
// offline, and every recovered project is assigned a fresh chat group
// address from the pool; group addresses are not part of the snapshot
// format. Unreadable records are skipped, and a project directory
// with no readable records at all is ignored.
func (s *Store) Load(p *pool.Pool, chatPort int) (*board.Registry, error) {
	reg := board.NewRegistry()
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read snapshot root: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if proj, ok := s.loadProject(e.Name(), p, chatPort); ok {
				reg.AddProject(proj)
			}
			continue
		}
		var users []*board.User
		if err := s.readJSON(filepath.Join(s.root, e.Name()), &users); err != nil {
			s.log.Warn("skipping unreadable user record", "file", e.Name(), "error", err)
			continue
		}
		for _, u := range users {
			reg.AddUser(u)
		}
	}
	return reg, nil
}

// loadProject reads one project directory, re-deriving each card's
// list from the last entry of its history.
func (s *Store) loadProject(name string, p *pool.Pool, chatPort int) (*board.Project, bool) {
	dir := filepath.Join(s.root, name)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		s.log.Warn("skipping unreadable project directory", "project", name, "error", err)
		return nil, false
	}
	proj := &board.Project{Name: name, Port: chatPort}
	records := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if e.Name() == membersFile {
			if err := s.readJSON(path, &proj.Members); err != nil {
				s.log.Warn("skipping unreadable member record", "project", name, "error", err)
				continue
			}
			records++
			continue
		}
		var c board.Card
		if err := s.readJSON(path, &c); err != nil || len(c.History) == 0 {
			s.log.Warn("skipping unreadable card record", "project", name, "file", e.Name(), "error", err)
			continue
		}
		proj.Cards = append(proj.Cards, &c)
		records++
	}
	if records == 0 {
		return nil, false
	}
	proj.Group = p.Acquire()
	return proj, true
}

func (s *Store) readJSON(path string, v any) error {
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
