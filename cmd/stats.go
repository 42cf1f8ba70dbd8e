package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/chart"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/ledger"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/services"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	statsYears bool
	statsChart string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how the archive is distributed",
	Long: `Count the files of the organized archive per bucket (course or
category) and year.

--chart out.html writes a stacked bar chart that opens in any browser.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsYears, "years", "y", false, "break buckets down by year")
	statsCmd.Flags().StringVar(&statsChart, "chart", "", "write an HTML bar chart to this file")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	counts, err := services.ArchiveStats(ctx, appArchive.OrganizedPath)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		fmt.Println(ui.FormatMuted("The archive is empty: " + appArchive.OrganizedPath))
		return nil
	}

	fmt.Println(ui.FormatTitle("Research Archive"))
	fmt.Println()

	rows := counts
	if !statsYears {
		rows = services.BucketTotals(counts)
	}

	columns := []ui.TableColumn{{Header: "Bucket"}}
	if statsYears {
		columns = append(columns, ui.TableColumn{Header: "Year", Align: ui.AlignRight})
	}
	columns = append(columns,
		ui.TableColumn{Header: "Files", Align: ui.AlignRight},
		ui.TableColumn{Header: "Size", Align: ui.AlignRight},
	)
	table := ui.NewTable(columns...)

	var files int
	var bytes int64
	for _, c := range rows {
		cells := []string{c.Bucket}
		if statsYears {
			cells = append(cells, yearCell(c.Year))
		}
		cells = append(cells, humanize.Comma(int64(c.Count)), humanize.IBytes(uint64(c.Bytes)))
		table.AddRow(cells...)
		files += c.Count
		bytes += c.Bytes
	}
	fmt.Print(table.Render())
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Total", fmt.Sprintf("%s files, %s", humanize.Comma(int64(files)), humanize.IBytes(uint64(bytes)))))

	printLedgerCounts(cmd)

	if statsChart != "" {
		if err := writeChart(statsChart, counts); err != nil {
			fmt.Println(ui.FormatError("Chart failed: " + err.Error()))
			return nil
		}
		fmt.Println()
		fmt.Println(ui.FormatSuccess("Chart written to " + statsChart))
	}
	return nil
}

func printLedgerCounts(cmd *cobra.Command) {
	if _, err := os.Stat(appArchive.LedgerPath()); err != nil {
		return
	}
	store, err := ledger.Open(appArchive.LedgerPath(), logger)
	if err != nil {
		return
	}
	defer store.Close()

	counts, err := store.StatusCounts(cmd.Context())
	if err != nil || len(counts) == 0 {
		return
	}
	fmt.Println(ui.RenderKeyValue("Ledger", fmt.Sprintf("%d organized, %d duplicates",
		counts[domain.StatusOrganized], counts[domain.StatusDuplicate])))
}

func writeChart(path string, counts []domain.BucketCount) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := chart.RenderDistribution(f, counts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func yearCell(y int) string {
	if y == 0 {
		return "-"
	}
	return strconv.Itoa(y)
}
