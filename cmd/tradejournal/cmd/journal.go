package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query and export the trade ledger",
	Long: `Query and display closed trades from the ledger.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - List trades closed today
  day    - List trades closed on a specific day
  export - Write every trade as CSV or Org-mode

Examples:
  tradejournal journal trade <trade-id>
  tradejournal journal today
  tradejournal journal day 2024-01-15
  tradejournal journal export --format csv --output trades.csv`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every trade",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var (
	exportFormat string
	exportOutput string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "export format: csv or org")
	journalExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.ledger.ByTradeID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntryOrg(e))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Account.Location()
	if err != nil {
		return err
	}
	return printDay(cmd, a, time.Now().In(loc))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Account.Location()
	if err != nil {
		return err
	}
	day, err := time.ParseInLocation("2006-01-02", args[0], loc)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return printDay(cmd, a, day)
}

func printDay(cmd *cobra.Command, a *app, day time.Time) error {
	entries, err := a.ledger.OnDate(cmd.Context(), day)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no trades on %s\n", day.Format("2006-01-02"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntriesOrg(entries))
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "org" {
		return fmt.Errorf("unknown format %q: want csv or org", exportFormat)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.ledger.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	if exportOutput == "" {
		return export(cmd.OutOrStdout(), entries)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := export(bw, entries); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d trades to %s\n", len(entries), exportOutput)
	return nil
}

func export(w io.Writer, entries []journal.Entry) error {
	var err error
	switch exportFormat {
	case "org":
		_, err = fmt.Fprintln(w, journal.FormatEntriesOrg(entries))
	default:
		err = journal.WriteCSV(w, entries)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
