package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/poptrans/internal/adapter/output"
	"github.com/jmylchreest/poptrans/internal/config"
	"github.com/jmylchreest/poptrans/internal/core"
	"github.com/jmylchreest/poptrans/internal/history"
	"github.com/jmylchreest/poptrans/internal/model"
)

var historyOpts struct {
	historyFile string

	// Filter options
	since  string
	lang   string
	status string
	search string
	limit  int

	// Output options
	format   string
	template string
	width    int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List translation history",
	Long: `List recorded translations, newest first.

Examples:
  # Everything from the last day
  poptrans history --since 1d

  # Only failures, as JSON
  poptrans history --status failed --format json

  # Pick a past translation with fuzzel and copy the result
  poptrans history --format dmenu | fuzzel -d | poptrans history show --field result - | wl-copy`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowOpts struct {
	field string
}

var historyShowCmd = &cobra.Command{
	Use:   "show <index|id|->",
	Short: "Show one history entry",
	Long: `Show one history entry by 1-based index (as listed by "poptrans history")
or by ID. With "-" the reference is read from stdin, which accepts a full
line of dmenu output.

The listing filters (--since, --lang, --status, --search) apply before the
index is resolved.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

var historyClearOpts struct {
	yes bool
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all history entries",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

var historyPruneOpts struct {
	keep int
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the most recent history entries",
	Long: `Remove the oldest entries so that at most --keep remain.

Without --keep the [history] max_entries setting is used.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyClearCmd, historyPruneCmd)

	pf := historyCmd.PersistentFlags()
	pf.StringVar(&historyOpts.historyFile, "history-file", "",
		"Path to history file (default: ~/.local/share/poptrans/history.jsonl)")
	pf.StringVar(&historyOpts.since, "since", "",
		"Only entries from the last duration (e.g., 1h, 7d, 1w)")
	pf.StringVar(&historyOpts.lang, "lang", "",
		"Only entries translated into this language (e.g., ZH)")
	pf.StringVar(&historyOpts.status, "status", "",
		"Only entries with this status (ok, failed)")
	pf.StringVarP(&historyOpts.search, "search", "s", "",
		"Search in source and translated text")

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
		"Maximum number of entries to show (0=unlimited)")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "plain",
		"Output format ("+formatNames()+")")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Custom Go template for dmenu output")
	historyCmd.Flags().IntVar(&historyOpts.width, "width", 80,
		"Wrap width for plain output (0=no wrapping)")

	historyShowCmd.Flags().StringVar(&historyShowOpts.field, "field", "",
		"Output a single field (id, source, result, from, to, error, all)")

	historyClearCmd.Flags().BoolVarP(&historyClearOpts.yes, "yes", "y", false,
		"Do not ask for confirmation")

	historyPruneCmd.Flags().IntVar(&historyPruneOpts.keep, "keep", 0,
		"Number of most recent entries to keep")
}

func formatNames() string {
	names := make([]string, 0, len(output.FormatTypes()))
	for _, f := range output.FormatTypes() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// openHistory opens the history file named by --history-file or the default.
func openHistory() (*history.Store, error) {
	path := historyOpts.historyFile
	if path == "" {
		var err error
		if path, err = config.HistoryPath(); err != nil {
			return nil, err
		}
	}
	return history.Open(path, logger)
}

// filterOptions builds the listing filters from the flags.
func filterOptions() (core.FilterOptions, error) {
	opts := core.FilterOptions{
		TargetLang: historyOpts.lang,
		Search:     historyOpts.search,
	}

	if historyOpts.since != "" {
		d, err := core.ParseDuration(historyOpts.since)
		if err != nil {
			return opts, fmt.Errorf("invalid --since: %w", err)
		}
		opts.Since = d
	}

	status, err := core.ParseStatus(historyOpts.status)
	if err != nil {
		return opts, fmt.Errorf("invalid --status: %w", err)
	}
	opts.Status = status
	return opts, nil
}

// filteredEntries returns the filtered history, newest first.
func filteredEntries(limit int) ([]model.Entry, error) {
	opts, err := filterOptions()
	if err != nil {
		return nil, err
	}
	opts.Limit = limit

	store, err := openHistory()
	if err != nil {
		return nil, err
	}
	entries, err := store.Query(history.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	logger.Debug("loaded history", "path", store.Path(), "count", len(entries))
	return core.Filter(entries, opts), nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(historyOpts.format)
	if err != nil {
		return err
	}

	entries, err := filteredEntries(historyOpts.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 && format != output.FormatJSON {
		logger.Debug("no history entries to output")
		return nil
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = historyOpts.template
	opts.Width = historyOpts.width
	return output.NewFormatter(format, opts).Format(cmd.OutOrStdout(), entries)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	ref := args[0]
	if ref == "-" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		ref = line
	}
	ref = parseDmenuSelection(ref)
	if ref == "" {
		return fmt.Errorf("no history entry selected")
	}

	entries, err := filteredEntries(0)
	if err != nil {
		return err
	}
	e := core.Lookup(entries, ref)
	if e == nil {
		return fmt.Errorf("history entry %q not found", ref)
	}

	if historyShowOpts.field != "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), output.FormatField(e, historyShowOpts.field))
		return err
	}
	return output.NewJSONFormatter(output.DefaultFormatterOptions()).FormatSingle(cmd.OutOrStdout(), e)
}

// parseDmenuSelection extracts the entry reference from a dmenu line.
// Input could be the full line: "3 | 5 minutes ago | EN-ZH | hello → 你好"
// or just an index or ID.
func parseDmenuSelection(selection string) string {
	selection = strings.TrimSpace(selection)
	if !strings.Contains(selection, "|") {
		return selection
	}

	first := strings.TrimSpace(strings.SplitN(selection, "|", 2)[0])
	if idx, err := strconv.Atoi(first); err == nil && idx > 0 {
		return first
	}
	return selection
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}

	if !historyClearOpts.yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("Remove all entries from %s?", store.Path()))
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return err
		}
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
	return err
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	keep := historyPruneOpts.keep
	if !cmd.Flags().Changed("keep") {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		keep = cfg.History.MaxEntries
	}
	if keep <= 0 {
		return fmt.Errorf("specify --keep greater than 0")
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	removed, err := store.Prune(keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr%s\n", removed, plural(removed, "y", "ies"))
	return err
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s [y/N] ", question); err != nil {
		return false, err
	}
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
