package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chapterworks/spwalk/internal/history"
)

var errHistoryDisabled = errors.New("run history is disabled (set [history] path in the config file)")

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent walks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultRecentLimit, "number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	if resolvedCfg.History.Path == "" {
		return errHistoryDisabled
	}

	logger := buildLogger(resolvedCfg, cmd.ErrOrStderr())

	store, err := history.Open(cmd.Context(), resolvedCfg.History.Path, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if flagJSON {
		if runs == nil {
			runs = []history.Run{}
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for i := range runs {
		r := &runs[i]
		rows = append(rows, []string{
			formatTime(r.StartedAt),
			r.Source,
			r.Site,
			strconv.Itoa(r.Drives),
			strconv.Itoa(r.Folders),
			strconv.Itoa(r.Files),
			formatDuration(r.Duration),
			r.Outcome,
		})
	}

	printTable(out, []string{"STARTED", "SOURCE", "SITE", "DRIVES", "FOLDERS", "FILES", "DURATION", "OUTCOME"}, rows)

	return nil
}
