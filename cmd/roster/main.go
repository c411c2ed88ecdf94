package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naveenspark/roster/internal/config"
	"github.com/naveenspark/roster/internal/log"
	"github.com/naveenspark/roster/internal/memory"
	"github.com/naveenspark/roster/internal/session"
	"github.com/naveenspark/roster/internal/tracing"
	"github.com/naveenspark/roster/internal/tui"
	"github.com/naveenspark/roster/internal/workflow"
	"github.com/naveenspark/roster/pkg/client"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func init() {
	// Query the terminal background before Bubble Tea owns stdin, otherwise the
	// OSC 11 reply can land in a text input.
	_ = lipgloss.HasDarkBackground()
}

func main() {
	root, closeRuntime := newRootCmd(setup)
	err := root.Execute()
	closeRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	debug      bool
	backend    string
}

// runtime holds everything a command needs once configuration is loaded.
type runtime struct {
	cfg     config.Config
	svc     *workflow.Service
	tracing *tracing.Provider
	cleanup []func()
}

func (rt *runtime) session() *session.Session { return rt.svc.Session() }

func (rt *runtime) close() {
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

// setupFunc builds the runtime; tests substitute an in-memory one.
type setupFunc func(globalFlags) (*runtime, error)

// newRootCmd builds the command tree. The returned func releases whatever the
// executed command set up.
func newRootCmd(build setupFunc) (*cobra.Command, func()) {
	var flags globalFlags
	var rt *runtime

	root := &cobra.Command{
		Use:           "roster",
		Short:         "Student directory in your terminal",
		Long:          "Register with your university email, keep your student profile up to date, and browse everyone else who has signed up.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "departments", "help", "completion":
				return nil
			}
			var err error
			rt, err = build(flags)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), rt)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "",
		"config file (default: ./.roster/config.yaml or ~/.config/roster/config.yaml)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false,
		"write a debug log (see log_file)")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "",
		`backend to use: "firebase" or "memory" (in-process demo data)`)

	current := func() *runtime { return rt }
	root.AddCommand(
		newLoginCmd(current),
		newSignupCmd(current),
		newLogoutCmd(current),
		newResetPasswordCmd(current),
		newListCmd(current),
		newProfileCmd(current),
		newEditCmd(current),
		newDepartmentsCmd(),
		newVersionCmd(),
	)
	return root, func() {
		if rt != nil {
			rt.close()
		}
	}
}

// setup loads configuration and wires the selected backend.
func setup(flags globalFlags) (*runtime, error) {
	cfg, _, err := config.Load(viper.New(), config.Options{
		ConfigFile:   flags.configFile,
		EnvFile:      ".env",
		WriteDefault: flags.configFile == "",
	})
	if err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	rt := &runtime{cfg: cfg}
	if cfg.Debug || log.DebugFromEnv() {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		closeLog, err := log.Init(cfg.LogFile, "roster")
		if err != nil {
			return nil, err
		}
		rt.cleanup = append(rt.cleanup, closeLog)
	}

	prov, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.tracing = prov
	rt.cleanup = append(rt.cleanup, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := prov.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatConfig, "tracing shutdown failed", err)
		}
	})

	var (
		auth  workflow.Auth
		store workflow.Store
		sess  *session.Session
	)
	switch cfg.Backend {
	case config.BackendMemory:
		b := memory.New()
		rt.cleanup = append(rt.cleanup, b.Close)
		if err := seedDemo(context.Background(), b); err != nil {
			rt.close()
			return nil, err
		}
		// Accounts live only as long as the process, so a persisted session
		// would point at users that no longer exist.
		dir, err := os.MkdirTemp("", "roster-memory-*")
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("creating demo session directory: %w", err)
		}
		rt.cleanup = append(rt.cleanup, func() { _ = os.RemoveAll(dir) })
		sess, err = session.Open(filepath.Join(dir, "session.yaml"), b)
		if err != nil {
			rt.close()
			return nil, err
		}
		auth, store = b, b

	default:
		fb := cfg.Firebase
		authClient := client.NewAuth(fb.AuthURL, fb.TokenURL, fb.APIKey, cfg.HTTPTimeout)
		sess, err = session.Open(cfg.SessionFile, authClient)
		if err != nil {
			rt.close()
			return nil, err
		}
		auth = authClient
		store = client.NewStore(fb.DatabaseURL, sess, cfg.HTTPTimeout)
	}

	rt.svc = workflow.New(auth, store, sess, workflow.Options{
		Tracer:   prov.Tracer(),
		CacheTTL: cfg.CacheTTL,
	})
	log.Info(log.CatConfig, "runtime ready", "backend", cfg.Backend, "tracing", prov.Enabled())
	return rt, nil
}

func runTUI(ctx context.Context, rt *runtime) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := rt.svc.NewFeed()
	defer feed.Close()

	changes, err := rt.session().Watch(ctx, session.DefaultDebounce)
	if err != nil {
		// The TUI still works; it just won't notice sign-outs from elsewhere.
		log.ErrorErr(log.CatSession, "session watch unavailable", err)
		changes = nil
	}

	app := tui.NewApp(ctx, rt.svc, feed, tui.Options{
		Version:        version,
		ReleaseURL:     tui.DefaultReleaseURL,
		HighlightColor: rt.cfg.UI.HighlightColor,
		SessionChanges: changes,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
