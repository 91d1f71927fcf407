// Package daemon wires recovery, the address pool, the presence hub,
// and both listeners into a running server process.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"strconv"

	"github.com/spf13/afero"

	"github.com/alessiodelgadillo/Worth/internal/chat"
	"github.com/alessiodelgadillo/Worth/internal/dispatch"
	"github.com/alessiodelgadillo/Worth/internal/mux"
	"github.com/alessiodelgadillo/Worth/internal/notify"
	"github.com/alessiodelgadillo/Worth/internal/pool"
	"github.com/alessiodelgadillo/Worth/internal/presence"
	"github.com/alessiodelgadillo/Worth/internal/session"
	"github.com/alessiodelgadillo/Worth/internal/store"
)

// Options configures the server daemon.
type Options struct {
	DataDir       string
	BindAddr      string
	Port          int
	NotifyPort    int
	ChatPort      int
	MulticastBase string

	// Fs defaults to the OS filesystem; tests run on a memory one.
	Fs     afero.Fs
	Logger *slog.Logger
}

// Run recovers persisted state and serves until the context is done.
func Run(ctx context.Context, opt Options) error {
	if opt.DataDir == "" {
		return errors.New("data dir is required")
	}
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}
	fs := opt.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	base, err := netip.ParseAddr(opt.MulticastBase)
	if err != nil {
		return err
	}
	pl, err := pool.New(base)
	if err != nil {
		return err
	}

	st := store.New(fs, opt.DataDir, lg)
	reg, err := st.Load(pl, opt.ChatPort)
	if err != nil {
		return err
	}
	hub := presence.NewHub(lg)
	hub.Broadcast(reg.PresenceMap())

	disp := &dispatch.Dispatcher{
		Board:    reg,
		Sessions: session.NewRegistry(),
		Hub:      hub,
		Store:    st,
		Pool:     pl,
		ChatPort: opt.ChatPort,
		Announce: chat.Announce,
		Log:      lg,
	}
	srv, err := mux.Listen(joinHostPort(opt.BindAddr, opt.Port), disp.Handle, lg)
	if err != nil {
		return err
	}
	sub := &notify.Server{Board: reg, Hub: hub, Store: st, Log: lg}

	errCh := make(chan error, 2)
	go func() { errCh <- sub.ListenAndServe(ctx, joinHostPort(opt.BindAddr, opt.NotifyPort)) }()
	go func() { errCh <- srv.Serve(ctx) }()
	return <-errCh
}

func joinHostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
