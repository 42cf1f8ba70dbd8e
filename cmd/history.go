package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/ledger"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	historyLimit     int
	historySummaries bool
	historyShow      string
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "Show recently processed files",
	Long: `List the newest entries of the processing ledger.

--summaries reads the JSON summaries instead, which also works when the
ledger database is missing. --show <id> prints one summary in full.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of entries")
	historyCmd.Flags().BoolVarP(&historySummaries, "summaries", "s", false, "list summary files instead of the ledger")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the summary with this id")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if historyShow != "" {
		s, err := summaryRepo.Get(ctx, historyShow)
		if err != nil {
			return err
		}
		return printJSON(s)
	}

	if _, err := os.Stat(appArchive.LedgerPath()); historySummaries || err != nil {
		return historyFromSummaries(cmd)
	}

	store, err := ledger.Open(appArchive.LedgerPath(), logger)
	if err != nil {
		fmt.Println(ui.FormatWarning("Ledger unavailable, reading summaries: " + err.Error()))
		return historyFromSummaries(cmd)
	}
	defer store.Close()

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(ui.FormatMuted("No files processed yet"))
		return nil
	}

	table := ui.NewTable(
		ui.TableColumn{Header: "When"},
		ui.TableColumn{Header: "Status"},
		ui.TableColumn{Header: "File", MaxWidth: 36},
		ui.TableColumn{Header: "Filed as", MaxWidth: 56},
		ui.TableColumn{Header: "Size", Align: ui.AlignRight},
		ui.TableColumn{Header: "Links"},
	)
	for _, e := range entries {
		table.AddRow(
			humanize.Time(e.ProcessedAt),
			ui.FormatStatus(e.Status),
			filepath.Base(e.SourcePath),
			relToArchive(e.DestPath),
			humanize.IBytes(uint64(e.Size)),
			externalLinks(e.ZoteroKey, e.CalibreID),
		)
	}
	fmt.Print(table.Render())
	return nil
}

func historyFromSummaries(cmd *cobra.Command) error {
	summaries, err := summaryRepo.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println(ui.FormatMuted("No summaries in " + summaryRepo.Dir()))
		return nil
	}

	table := ui.NewTable(
		ui.TableColumn{Header: "When"},
		ui.TableColumn{Header: "ID"},
		ui.TableColumn{Header: "Status"},
		ui.TableColumn{Header: "File", MaxWidth: 36},
		ui.TableColumn{Header: "Course"},
	)
	for _, s := range summaries {
		table.AddRow(
			humanize.Time(s.Timestamp),
			shortID(s.ID),
			ui.FormatStatus(s.Status),
			filepath.Base(s.OriginalFile),
			s.Classification.Course,
		)
	}
	fmt.Print(table.Render())
	return nil
}

func externalLinks(zoteroKey, calibreID string) string {
	var out string
	if zoteroKey != "" {
		out = "zotero:" + zoteroKey
	}
	if calibreID != "" {
		if out != "" {
			out += " "
		}
		out += "calibre:" + calibreID
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
