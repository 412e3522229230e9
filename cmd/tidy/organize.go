package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jamesainslie/tidy/pkg/tidy/config"
	"github.com/jamesainslie/tidy/pkg/tidy/organizer"
	"github.com/jamesainslie/tidy/pkg/tidy/types"
	"github.com/spf13/cobra"
)

// runOrganize is the root command handler.
func runOrganize(cmd *cobra.Command, args []string) error {
	source := "."
	if len(args) > 0 {
		source = args[0]
	}
	target := ""
	if len(args) > 1 {
		target = args[1]
	}

	return organize(cmd.Context(), cfg, cmd.OutOrStdout(), source, target, dryRun)
}

// organize runs one organize pass and renders the report. The returned
// error carries the exit code: 1 when any file failed, 130 when
// interrupted.
func organize(ctx context.Context, c *config.Config, w io.Writer, source, target string, dry bool) error {
	src, err := config.ExpandPath(source)
	if err != nil {
		return err
	}
	dst, err := config.ExpandPath(target)
	if err != nil {
		return err
	}

	cl, closeCache := buildClassifier(c)
	defer closeCache()

	org, err := newOrganizer(c, cl)
	if err != nil {
		return err
	}

	report, err := org.Organize(ctx, src, dst, dry)
	if report == nil {
		if errors.Is(err, organizer.ErrLocked) {
			return fmt.Errorf("%w (another tidy run is organizing this target)", err)
		}
		return err
	}

	if rerr := render(w, report); rerr != nil {
		return rerr
	}
	return reportExit(report, err)
}

// reportExit converts a finished report into the command result.
func reportExit(r *types.Report, runErr error) error {
	if r.Interrupted || errors.Is(runErr, context.Canceled) {
		printInfo("Interrupted after %d of %d files", r.Stats.FilesProcessed, r.Stats.FilesDiscovered)
		return &exitError{code: exitInterrupted}
	}
	if runErr != nil {
		return runErr
	}
	if r.Stats.Errors > 0 {
		return &exitError{code: exitFailure}
	}
	return nil
}
