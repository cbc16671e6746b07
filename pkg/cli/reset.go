package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/rentprice/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	// stdin is swapped in tests.
	stdin io.Reader = os.Stdin

	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}

	resetCmd = &cli.Command{
		Name:   "reset",
		Usage:  "Delete the imported rental dataset and start fresh",
		Flags:  []cli.Flag{yesFlag},
		Action: cmdReset,
	}
)

func cmdReset(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if !cmd.Bool(yesFlag.Name) {
		ok, err := confirm(fmt.Sprintf("This will permanently delete all data in %s", cfg.DBPath))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	if err := resetDB(cfg); err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Reset complete.")
	return nil
}

func confirm(msg string) (bool, error) {
	fmt.Fprintln(stdout, msg)
	fmt.Fprint(stdout, "Are you sure? [y/N]: ")

	answer, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading input: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y", nil
}

func resetDB(cfg *appConfig) error {
	// close the DB before deleting the file
	cfg.Close()

	if err := os.Remove(cfg.DBPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting database: %w", err)
	}
	slog.Info("database deleted", "path", cfg.DBPath)

	// re-initialize empty database
	if err := data.Init(cfg.DBPath); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}
	slog.Info("database re-initialized", "path", cfg.DBPath)
	return nil
}
