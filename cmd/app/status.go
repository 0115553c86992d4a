package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"qualitative-interview/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status USERNAME",
	Short: "Show whether a respondent has completed the interview",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	username := args[0]
	out := cmd.OutOrStdout()
	ok, err := a.canonical.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check %s: %w", username, err)
	}
	if !ok {
		fmt.Fprintf(out, "%s: no canonical record\n", username)
		if a.cache == nil {
			return nil
		}
		// a session in progress elsewhere leaves its latest snapshot in redis
		rec, err := a.cache.Load(ctx, username)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load backup of %s: %w", username, err)
		}
		fmt.Fprintf(out, "latest backup (%s, %d messages):\n", rec.State, len(rec.Messages))
		fmt.Fprint(out, rec.TranscriptText())
		return nil
	}
	rec, err := a.canonical.Load(ctx, username)
	if err != nil {
		return fmt.Errorf("load %s: %w", username, err)
	}
	fmt.Fprintf(out, "%s: recorded in %s (%s)\n", username, a.canonical.Name(), rec.State)
	fmt.Fprint(out, rec.Timing.TimingText())
	fmt.Fprintln(out)
	fmt.Fprint(out, rec.TranscriptText())
	return nil
}
