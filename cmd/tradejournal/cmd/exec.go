package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/tradejournal/command"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <command> [args...]",
	Short: "Run one journal command",
	Long: `Run a single journal command for a session and print the reply.

Examples:
  tradejournal exec open 98.45 --session 42
  tradejournal exec setq 85 --session 42
  tradejournal exec close 100.12 --session 42
  tradejournal exec quality 60-80`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Read commands from stdin, one per line",
	Long: `Read chat style commands from stdin and print each reply, the way
the journal would answer in a chat.

Example:
  $ tradejournal console --session 42
  /open 98.45
  /setq 85
  /close 100.12
  /stats`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

var sessionID string

func init() {
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(consoleCmd)

	for _, c := range []*cobra.Command{execCmd, consoleCmd} {
		c.Flags().StringVarP(&sessionID, "session", "s", "local", "session (chat) id")
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Execute(cmd.Context(), sessionID, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), command.Format(res))
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return console(cmd, a, cmd.InOrStdin(), cmd.OutOrStdout())
}

// console answers each line until EOF or "/quit". User errors are
// printed and the loop goes on; a storage fault ends it.
func console(cmd *cobra.Command, a *app, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		if n := command.Normalize(name); n == "quit" || n == "exit" {
			return nil
		}

		res, err := a.svc.Execute(cmd.Context(), sessionID, name, rest)
		var ce *command.Error
		switch {
		case errors.As(err, &ce):
			fmt.Fprintf(out, "error: %s\n", ce.Message)
		case err != nil:
			return err
		default:
			fmt.Fprint(out, command.Format(res))
		}
	}
	return sc.Err()
}
