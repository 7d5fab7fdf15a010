package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/service"
	"github.com/loog-project/roster/internal/store"
	bboltStore "github.com/loog-project/roster/internal/store/bbolt"
)

const (
	keyDataFile         = "data-file"
	keyDebug            = "debug"
	keyCodec            = "codec"
	keyNoDurableSync    = "no-durable-sync"
	keyDisableCache     = "disable-cache"
	keySnapshotInterval = "snapshot-interval"
	keyListen           = "listen"
	keyShutdownTimeout  = "shutdown-timeout"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Coaches, players and teams with a change history",
	Long: `Roster manages coaches, players and teams over a JSON HTTP API. Every
change is recorded as a revision, so the history of each entity can be
inspected and any previous state can be restored.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if viper.GetBool(keyDebug) {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
			Timestamp().
			Logger().
			Level(level)
	},
}

var setupLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
	Timestamp().
	Caller().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.roster.yaml)")
	flags.StringP(keyDataFile, "d", "roster.db",
		"Path to the database file")
	flags.Bool(keyDebug, false,
		"Log debug messages")
	flags.String(keyCodec, "msgpack",
		"Encoding of stored records, msgpack or json (must not change for an existing database)")
	flags.Uint64P(keySnapshotInterval, "s", 8,
		"Create a full snapshot after this many patches")

	bindFlags(flags, keyDataFile, keyDebug, keyCodec, keySnapshotInterval)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".roster")
	}

	// ROSTER_DATA_FILE, ROSTER_SNAPSHOT_INTERVAL, ...
	viper.SetEnvPrefix("roster")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		setupLog.Info().Msgf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// bindFlags makes the given flags settable via environment variables and the config file.
func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		mustBind(name, viper.BindPFlag(name, flags.Lookup(name)))
	}
}

func mustBind(flagName string, err error) {
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to bind flag %s", flagName)
	}
}

// app is everything a command needs to work with the roster.
type app struct {
	store   *bboltStore.Store
	tracker *service.TrackerService
	events  *eventmux.Mux
	roster  *service.Roster
}

// openApp opens the database configured by --data-file.
func openApp(durable, enableCache bool, snapshotInterval uint64) (*app, error) {
	codec, err := store.CodecByName(viper.GetString(keyCodec))
	if err != nil {
		return nil, err
	}
	path := viper.GetString(keyDataFile)

	setupLog.Info().
		Str("data-file", path).
		Bool("durable", durable).
		Msg("Opening database...")
	s, err := bboltStore.New(path, codec, durable)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	tracker := service.NewTrackerService(s, snapshotInterval, enableCache)
	events := eventmux.New()
	roster := service.NewRoster(service.Repositories{
		Coaches: bboltStore.NewRepository[model.Coach](s),
		Players: bboltStore.NewRepository[model.Player](s),
		Teams:   bboltStore.NewRepository[model.Team](s),
	}, tracker, service.WithEventMux(events))

	return &app{store: s, tracker: tracker, events: events, roster: roster}, nil
}

// openDefaultApp opens the database for short-lived commands.
func openDefaultApp() (*app, error) {
	return openApp(true, false, viper.GetUint64(keySnapshotInterval))
}

func (a *app) Close() {
	a.events.Stop()
	a.tracker.Close()
	if err := a.store.Close(); err != nil {
		setupLog.Error().Err(err).Msg("Cannot close database")
	}
}
