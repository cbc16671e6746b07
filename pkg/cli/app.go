package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/rentprice/pkg/config"
	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/mchmarny/rentprice/pkg/estimator"
	"github.com/mchmarny/rentprice/pkg/feature"
	"github.com/mchmarny/rentprice/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "rentprice"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	// stdout is swapped in tests.
	stdout io.Writer = os.Stdout

	debugFlag = &urfave.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configFlag = &urfave.StringFlag{
		Name:  "config",
		Usage: fmt.Sprintf("Path to the config file (default: $HOME/.%s/config.yaml)", appName),
	}

	dbFilePathFlag = &urfave.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite database file with the rental dataset",
	}

	modelFlag = &urfave.StringFlag{
		Name:  "model",
		Usage: "Path to the trained model file (YAML or JSON)",
	}

	columnsFlag = &urfave.StringFlag{
		Name:  "columns",
		Usage: "Path to the expected model columns file (YAML or JSON list)",
	}

	driftFlag = &urfave.StringFlag{
		Name:  "drift",
		Usage: "What to do with categories the model was not trained on [ignore, warn, fail]",
	}

	formatFlag = &urfave.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	*config.Config
	Debug bool
	Drift feature.DriftPolicy
	Dir   string

	db *sql.DB
}

// DB opens the dataset database on first use.
func (a *appConfig) DB() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}

	if err := data.Init(a.DBPath); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(a.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	return db, nil
}

// Estimator loads the model and its expected columns.
func (a *appConfig) Estimator(ctx context.Context) (*estimator.Estimator, error) {
	e, err := estimator.Load(ctx, a.ModelPath, a.ColumnsPath, a.Drift)
	if err != nil {
		return nil, fmt.Errorf("loading model (model: %s, columns: %s): %w", a.ModelPath, a.ColumnsPath, err)
	}
	return e, nil
}

func (a *appConfig) Tokens() *tokenStore {
	return &tokenStore{dir: a.Dir}
}

func (a *appConfig) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
		a.db = nil
	}
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Predict the total monthly rent of a Brazilian property from its attributes",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			debugFlag,
			configFlag,
			dbFilePathFlag,
			modelFlag,
			columnsFlag,
			driftFlag,
			formatFlag,
		},
		Commands: []*urfave.Command{
			predictCmd,
			importanceCmd,
			citiesCmd,
			importCmd,
			stateCmd,
			resetCmd,
			serverCmd,
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			if cmd.Bool(debugFlag.Name) {
				initLogging(true)
			}

			f := cmd.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			cfg, dir, err := loadConfig(cmd)
			if err != nil {
				return ctx, err
			}

			drift, err := feature.ParseDriftPolicy(cfg.Drift)
			if err != nil {
				return ctx, fmt.Errorf("invalid drift policy: %w", err)
			}

			slog.Debug("config",
				"model", cfg.ModelPath,
				"columns", cfg.ColumnsPath,
				"db", cfg.DBPath,
				"drift", drift,
			)

			cmd.Metadata[appConfigKey] = &appConfig{
				Config: cfg,
				Debug:  cmd.Bool(debugFlag.Name),
				Drift:  drift,
				Dir:    dir,
			}
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.Close()
			}
			return nil
		},
	}
}

// loadConfig layers the config file, RENTPRICE_* variables and flags.
// It also returns the directory holding the config file.
func loadConfig(cmd *urfave.Command) (*config.Config, string, error) {
	var (
		cfg *config.Config
		dir string
		err error
	)

	if p := cmd.String(configFlag.Name); p != "" {
		dir = filepath.Dir(p)
		cfg, err = config.Read(p)
	} else {
		dir, _, err = config.GetOrCreateHomeDir(appName)
		if err != nil {
			slog.Debug("error getting home dir, using current dir instead", "error", err)
			dir = "."
		}
		cfg, err = config.ReadOrCreate(dir)
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, "", err
	}

	overrides := []struct {
		flag *urfave.StringFlag
		dst  *string
	}{
		{dbFilePathFlag, &cfg.DBPath},
		{modelFlag, &cfg.ModelPath},
		{columnsFlag, &cfg.ColumnsPath},
		{driftFlag, &cfg.Drift},
	}
	for _, o := range overrides {
		if cmd.IsSet(o.flag.Name) {
			*o.dst = cmd.String(o.flag.Name)
		}
	}

	if cfg.DBPath != "" {
		cfg.DBPath = filepath.Clean(cfg.DBPath)
	}

	return cfg, dir, nil
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

func encode(v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(stdout).Encode(v)
	}
	e := json.NewEncoder(stdout)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
