package adduser

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/alessiodelgadillo/Worth/internal/logging"
	"github.com/alessiodelgadillo/Worth/internal/pool"
	"github.com/alessiodelgadillo/Worth/internal/store"
)

// Run registers an account directly against the snapshot store, for
// bootstrapping a server that has no users yet. The server must not
// be running while this writes.
func Run(args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	var (
		dataDir = fs.String("data-dir", "./recovery", "snapshot directory")
		user    = fs.String("user", "", "username to register")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return errors.New("-user is required")
	}

	lg, err := logging.New(logging.Options{Level: "warn"})
	if err != nil {
		return err
	}
	st := store.New(afero.NewOsFs(), *dataDir, lg)
	// The pool and chat port only matter to a running server; recovery
	// needs placeholders to rebuild the registry.
	pl, err := pool.New(pool.DefaultBase)
	if err != nil {
		return err
	}
	reg, err := st.Load(pl, 4000)
	if err != nil {
		return err
	}

	password, err := promptPassword(fmt.Sprintf("Password for %s", *user))
	if err != nil {
		return err
	}
	if err := reg.RegisterUser(*user, password); err != nil {
		return err
	}
	if err := st.SaveUsers(reg.Users()); err != nil {
		return err
	}
	fmt.Printf("user %s registered\n", *user)
	return nil
}

// promptPassword reads a password twice without echo.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal")
	}
	for {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		p1, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		fmt.Fprint(os.Stderr, "Confirm password: ")
		p2, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		if len(p1) == 0 {
			fmt.Fprintln(os.Stderr, "password cannot be empty")
			continue
		}
		if string(p1) != string(p2) {
			fmt.Fprintln(os.Stderr, "passwords do not match")
			continue
		}
		return string(p1), nil
	}
}
