package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/mchmarny/rentprice/pkg/net"
	"github.com/urfave/cli/v3"
)

var (
	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Path to the rental dataset CSV (houses_to_rent_v2.csv)",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL to download the rental dataset CSV from",
	}

	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "Bearer token for datasets behind authentication",
		Sources: cli.EnvVars("RENTPRICE_DATASET_TOKEN"),
	}

	saveTokenFlag = &cli.BoolFlag{
		Name:  "save-token",
		Usage: "Save the provided token to the OS keychain for later imports",
	}

	forgetTokenFlag = &cli.BoolFlag{
		Name:  "forget-token",
		Usage: "Remove the saved token and exit",
	}

	replaceFlag = &cli.BoolFlag{
		Name:  "replace",
		Usage: "Remove previously imported rows first",
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import the historical rental dataset used by the city chart",
		UsageText: `rentprice import --file houses_to_rent_v2.csv
   rentprice import --url https://example.com/houses_to_rent_v2.csv --replace`,
		Action: cmdImport,
		Flags: []cli.Flag{
			fileFlag,
			urlFlag,
			tokenFlag,
			saveTokenFlag,
			forgetTokenFlag,
			replaceFlag,
		},
	}

	stateCmd = &cli.Command{
		Name:   "state",
		Usage:  "Show what the rental dataset store holds",
		Action: cmdState,
	}

	citiesCmd = &cli.Command{
		Name:   "cities",
		Usage:  "Show the mean total rent by city from the imported dataset",
		Action: cmdCities,
	}
)

func cmdImport(ctx context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if cmd.Bool(forgetTokenFlag.Name) {
		if err := cfg.Tokens().Delete(); err != nil {
			return err
		}
		slog.Info("saved token removed")
		return nil
	}

	path := cmd.String(fileFlag.Name)
	url := cmd.String(urlFlag.Name)
	source := path

	if path == "" && url == "" {
		return errors.New("either --file or --url is required")
	}
	if path != "" && url != "" {
		return errors.New("--file and --url are mutually exclusive")
	}

	// Saving applies to any source so the token is ready for later URL imports.
	token, err := resolveToken(cfg.Tokens(), cmd.String(tokenFlag.Name), cmd.Bool(saveTokenFlag.Name))
	if err != nil {
		return err
	}

	if url != "" {
		f, err := os.CreateTemp("", "rentals-*.csv")
		if err != nil {
			return fmt.Errorf("error creating temp file: %w", err)
		}
		f.Close()
		defer os.Remove(f.Name())

		slog.Debug("downloading", "url", url, "path", f.Name(), "auth", token != "")
		client := net.GetClient(ctx, token)
		if err := net.Download(ctx, client, url, f.Name()); err != nil {
			return fmt.Errorf("error downloading dataset: %s: %w", url, err)
		}
		path = f.Name()
		source = url
	}

	db, err := cfg.DB()
	if err != nil {
		return err
	}

	res, err := importFile(db, path, cmd.Bool(replaceFlag.Name))
	if err != nil {
		return err
	}

	if err := data.SaveImport(db, source, res); err != nil {
		return err
	}

	return encode(res)
}

func cmdState(_ context.Context, cmd *cli.Command) error {
	db, err := getConfig(cmd).DB()
	if err != nil {
		return err
	}

	s, err := data.GetDataState(db)
	if err != nil {
		return err
	}

	return encode(s)
}

// resolveToken prefers the provided token and falls back to the saved one.
func resolveToken(s *tokenStore, token string, save bool) (string, error) {
	if token == "" {
		if save {
			return "", fmt.Errorf("--%s requires --%s", saveTokenFlag.Name, tokenFlag.Name)
		}
		return s.Get()
	}
	if save {
		if err := s.Save(token); err != nil {
			return "", fmt.Errorf("saving token: %w", err)
		}
		slog.Info("token saved")
	}
	return token, nil
}

func importFile(db *sql.DB, path string, replace bool) (*data.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset: %s: %w", path, err)
	}
	defer f.Close()

	res, err := data.ImportRentalsCSV(db, f, replace)
	if err != nil {
		return nil, fmt.Errorf("error importing dataset: %s: %w", path, err)
	}
	return res, nil
}

func cmdCities(_ context.Context, cmd *cli.Command) error {
	db, err := getConfig(cmd).DB()
	if err != nil {
		return err
	}

	s, err := data.GetCityAverages(db)
	if err != nil {
		return err
	}

	if len(s.Labels) == 0 {
		slog.Info("no rentals imported yet, run: rentprice import --file houses_to_rent_v2.csv")
	}

	return encode(s)
}
