package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loog-project/roster/internal/ui"
)

var browseListen string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browses the history of all entities in the terminal",
	Long: `Browse lists all coaches, players and teams with their revisions and
previews every revision as a diff to the one before.

With --listen the HTTP API is served at the same time and changes made through
it show up while browsing. Press L to see the log.`,
	Example: `  roster browse
  roster browse --listen :8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return browse(cmd.Context())
	},
}

func init() {
	browseCmd.Flags().StringVarP(&browseListen, "listen", "l", "",
		"Also serve the HTTP API on this address")
	rootCmd.AddCommand(browseCmd)
}

func browse(ctx context.Context) error {
	a, err := openApp(true, true, viper.GetUint64(keySnapshotInterval))
	if err != nil {
		return err
	}
	defer a.Close()

	// the terminal belongs to the browser, logs go to the log view
	uiLogger := ui.NewUILogger()
	previousLog, previousSetupLog := log.Logger, setupLog
	log.Logger = zerolog.New(uiLogger).Level(log.Logger.GetLevel())
	setupLog = log.Logger
	defer func() {
		log.Logger, setupLog = previousLog, previousSetupLog
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	root := ui.NewRoot(ui.DarkTheme, uiLogger, ui.NewBrowserView(a.roster))
	program := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	uiLogger.Attach(program)

	events, err := a.events.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			program.Send(ev)
		}
	}()

	if browseListen != "" {
		srv, errCh := startServer(a, browseListen)
		go func() {
			if err := <-errCh; err != nil {
				log.Error().Err(err).Msg("HTTP API stopped")
			}
		}()
		defer func() {
			if err := shutdownServer(a, srv); err != nil {
				previousSetupLog.Error().Err(err).Msg("Cannot shut down HTTP API")
			}
		}()
	}

	_, err = program.Run()
	return err
}
