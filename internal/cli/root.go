package cli

import (
	"context"
	"os"
	"time"

	"github.com/mgriffin/simman/internal/config"
	"github.com/mgriffin/simman/internal/history"
	"github.com/mgriffin/simman/internal/process"
	"github.com/mgriffin/simman/internal/sim"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	cfg     *config.Config
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "simman",
		Short: "Short, memorable commands for iOS simulators",
		Long: `simman wraps xcrun simctl with commands worth remembering.

Common workflows:
  simman list                     Show all simulators
  simman boot "iPhone 15"         Boot by name, wait until usable
  simman shutdown                 Shut down everything
  simman create Dev "iPhone 15" "iOS 17"
  simman doctor                   Check the local simctl installation`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			setupLogging()
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show underlying simctl commands")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// newService wires the runner, recent-device store, and poll budgets from
// the loaded config. The store is optional: a failure to place it only
// costs the last-booted convenience.
func newService() (*sim.Service, error) {
	runner, err := process.NewRunner(cfg.SimctlPath)
	if err != nil {
		return nil, err
	}

	var recents sim.RecentStore
	if store, err := history.NewFileStore(); err == nil {
		recents = store
	} else {
		log.Debug().Err(err).Msg("recent-device store unavailable")
	}

	poll := sim.PollConfig{
		BootAttempts:   cfg.BootPollAttempts,
		BootInterval:   cfg.BootInterval(),
		DeleteAttempts: cfg.DeletePollAttempts,
		DeleteInterval: cfg.DeleteInterval(),
	}
	return sim.NewService(runner, recents, poll, cfg.Timeout()), nil
}

func Execute(ctx context.Context, version string) error {
	rootCmd.Version = version

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(bootCmd())
	rootCmd.AddCommand(shutdownCmd())
	rootCmd.AddCommand(eraseCmd())
	rootCmd.AddCommand(installCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(doctorCmd())

	return rootCmd.ExecuteContext(ctx)
}
