package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chapterworks/spwalk/internal/config"
	"github.com/chapterworks/spwalk/internal/service"
	"github.com/chapterworks/spwalk/internal/walk"
)

// maxStdinToken caps how much of stdin is read as a token.
const maxStdinToken = 64 << 10

var errNoUserToken = errors.New("no user token (use --token or " + config.EnvUserToken + ", or pipe it on stdin)")

func newTreeCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Walk the site once and print its folders and documents",
		Long: `Run the same operation as POST /accessToken from the command line.

The user token is taken from --token, then $` + config.EnvUserToken + `, then stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTree(cmd, token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "user access token")

	return cmd
}

type treeOutput struct {
	RunID  string           `json:"runId"`
	Target string           `json:"target"`
	Forest []*walk.Node     `json:"forest"`
	Files  []walk.FileEntry `json:"files"`
}

func runTree(cmd *cobra.Command, flagToken string) error {
	logger := buildLogger(resolvedCfg, cmd.ErrOrStderr())

	userToken, err := readUserToken(flagToken, os.Getenv(config.EnvUserToken), cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, release := shutdownContext(cmd.Context(), logger)
	defer release()

	recorder, closeHistory, err := openHistory(ctx, resolvedCfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	holder := config.NewHolder(resolvedCfg, config.ConfigPath(resolvedEnv, resolvedCLI))
	orch := service.New(holder, logger, service.Options{Recorder: recorder})

	statusf(flagQuiet, "Walking site %s...\n", resolvedCfg.Graph.Site)

	res, err := orch.Run(ctx, userToken)
	if err != nil {
		return fmt.Errorf("walking site: %w", err)
	}

	out := cmd.OutOrStdout()

	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(treeOutput{
			RunID:  res.RunID,
			Target: res.Target.Path,
			Forest: res.Forest,
			Files:  res.Files,
		})
	}

	printForest(out, res.Forest)
	fmt.Fprintf(out, "\nDocuments in %s:\n", res.Target.Path)

	if len(res.Files) == 0 {
		fmt.Fprintln(out, "  (none)")
		return nil
	}

	rows := make([][]string, 0, len(res.Files))
	for _, f := range res.Files {
		rows = append(rows, []string{f.Name, string(f.DownloadURL)})
	}

	printTable(out, []string{"NAME", "DOWNLOAD URL"}, rows)

	return nil
}

// readUserToken picks the token from the flag, then the environment, then
// stdin when stdin is not a terminal.
func readUserToken(flagToken, envToken string, stdin io.Reader) (string, error) {
	if t := strings.TrimSpace(flagToken); t != "" {
		return t, nil
	}

	if t := strings.TrimSpace(envToken); t != "" {
		return t, nil
	}

	if f, ok := stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "", errNoUserToken
	}

	b, err := io.ReadAll(io.LimitReader(stdin, maxStdinToken))
	if err != nil {
		return "", fmt.Errorf("reading token from stdin: %w", err)
	}

	if t := strings.TrimSpace(string(b)); t != "" {
		return t, nil
	}

	return "", errNoUserToken
}
