package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// usersAPI is the part of client.UsersClient the commands use.
type usersAPI interface {
	Register(ctx context.Context, name, email string, password []byte) (*client.Profile, error)
	Login(ctx context.Context, email string, password []byte) (*client.Profile, error)
	Me(ctx context.Context) (*client.Profile, error)
	Refresh(ctx context.Context) (*client.Profile, error)
	ChangePassword(ctx context.Context, current, next []byte) error
	Logout(ctx context.Context) (bool, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	users   usersAPI
	health  pinger
	closeFn func() error
	profile *client.Profile
	Mode    Mode
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	uc, err := client.NewUsersClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	hc, err := client.NewHealthClient(c.HealthAddr)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		users:   uc,
		health:  hc,
		closeFn: hc.Close,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.profile != nil
}

func (a *App) getStatus() string {
	s := string(a.Mode)
	if a.profile != nil {
		s = a.profile.Email + " " + s
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

// Run starts the connectivity watcher and the REPL. It returns when the
// user exits or stdin is closed.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if a.closeFn != nil {
		defer a.closeFn()
	}

	log.Println("Welcome to gophauth CLI (type 'help' for commands)")

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.health.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}
