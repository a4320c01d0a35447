// Package cli implements the looply command line client.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/celerix-dev/looply/internal/config"
	"github.com/celerix-dev/looply/internal/engine"
	"github.com/celerix-dev/looply/internal/logging"
	"github.com/celerix-dev/looply/pkg/sdk"
	"github.com/celerix-dev/looply/pkg/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	Version = "dev"
	Commit  = "none"
)

// App holds the dependencies of the commands. Zero fields get defaults.
type App struct {
	Clock tracker.Clock
	// Open returns the store for a loaded config.
	Open func(cfg config.Config, logger *zap.Logger) (sdk.Store, error)
}

// session is the per-invocation state built by the root command.
type session struct {
	app *App

	configPath string
	profile    string
	dataDir    string
	storeAddr  string
	asJSON     bool

	cfg    config.Config
	log    *zap.Logger
	st     sdk.Store
	svc    *tracker.Service
	closed bool
}

func openStore(cfg config.Config, logger *zap.Logger) (sdk.Store, error) {
	return engine.Open(engine.OpenOptions{
		RemoteAddr: cfg.StoreAddr,
		DisableTLS: cfg.DisableTLS,
		DataDir:    cfg.DataDir,
		Key:        cfg.Key(),
		Logger:     logger,
	})
}

// NewRootCmd builds the looply command tree.
func NewRootCmd(app *App) *cobra.Command {
	if app == nil {
		app = &App{}
	}
	if app.Open == nil {
		app.Open = openStore
	}
	s := &session{app: app}

	root := &cobra.Command{
		Use:     "looply",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
		Short:   "Track daily habits, streaks and weekly progress",
		Long: `looply keeps a list of daily habits and a log of what you did each day.
It shows your current streaks, this week's completion and a weekly review.

Data lives in a local data directory unless store_addr points at a
looply-stored daemon.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "config file (default $LOOPLY_CONFIG)")
	flags.StringVarP(&s.profile, "profile", "p", "", "profile to act on (default from config)")
	flags.StringVar(&s.dataDir, "data-dir", "", "data directory of the embedded store")
	flags.StringVar(&s.storeAddr, "store", "", "address of a looply-stored daemon")
	flags.BoolVar(&s.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(
		newProfilesCmd(s),
		newSignUpCmd(s),
		newUpgradeCmd(s),
		newOnboardCmd(s),
		newResetCmd(s),
		newHabitCmd(s),
		newLogCmd(s),
		newTodayCmd(s),
		newStatsCmd(s),
		newInsightsCmd(s),
		newMigrateCmd(s),
	)
	s.closeAfter(root)
	return root
}

// closeAfter wraps every RunE so the store is closed even when the command
// fails. PersistentPostRunE is skipped on errors.
func (s *session) closeAfter(cmd *cobra.Command) {
	for _, c := range cmd.Commands() {
		s.closeAfter(c)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		err := run(c, args)
		if closeErr := s.close(); err == nil {
			err = closeErr
		}
		return err
	}
}

// Execute runs the CLI with default dependencies and prints mapped errors
// with their hint to stderr.
func Execute() error {
	err := MapError(NewRootCmd(nil).Execute())
	if err != nil {
		printError(os.Stderr, err)
	}
	return err
}

func (s *session) init() error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if s.profile != "" {
		cfg.Profile = s.profile
	}
	if s.dataDir != "" {
		cfg.DataDir = s.dataDir
	}
	if s.storeAddr != "" {
		cfg.StoreAddr = s.storeAddr
	}
	if err := sdk.ValidateProfileID(cfg.Profile); err != nil {
		return err
	}
	s.cfg = cfg

	// Info chatter belongs to the daemon.
	level := cfg.LogLevel
	if level == "info" {
		level = "warn"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		return err
	}
	s.log = logger
	return nil
}

// store opens the configured store on first use.
func (s *session) store() (sdk.Store, error) {
	if s.st != nil {
		return s.st, nil
	}
	st, err := s.app.Open(s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.st = st
	return st, nil
}

func (s *session) tracker() (*tracker.Service, error) {
	if s.svc != nil {
		return s.svc, nil
	}
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	opts := []tracker.Option{
		tracker.WithFreeHabitLimit(s.cfg.FreeHabitLimit),
		tracker.WithLogger(s.log),
	}
	if s.app.Clock != nil {
		opts = append(opts, tracker.WithClock(s.app.Clock))
	}
	s.svc = tracker.New(st, opts...)
	return s.svc, nil
}

func (s *session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.log != nil {
		defer s.log.Sync()
	}
	if s.st != nil {
		return s.st.Close()
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
