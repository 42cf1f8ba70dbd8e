package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	classifyClipboard bool
	classifyJSON      bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Show how files would be classified and named",
	Long: `Classify files without moving them.

Prints the category, course, confidence and proposed destination of each
file. --copy puts the proposed file name on the clipboard (the last one
when several files are given).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVarP(&classifyClipboard, "copy", "c", false, "copy the proposed file name to the clipboard")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print outcomes as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	org, err := buildOrganizer(&session{}, processFlags{dryRun: true})
	if err != nil {
		return err
	}

	var outcomes []domain.Outcome
	for _, path := range args {
		rec, err := domain.NewFileRecord(path)
		if err != nil {
			fmt.Println(ui.FormatError(fmt.Sprintf("%s: %v", path, err)))
			continue
		}
		outcomes = append(outcomes, org.Plan(cmd.Context(), rec))
	}

	if classifyJSON {
		if err := printJSON(outcomes); err != nil {
			return err
		}
	} else {
		for i, o := range outcomes {
			if i > 0 {
				fmt.Println()
			}
			printClassification(o)
		}
	}

	if classifyClipboard && len(outcomes) > 0 {
		name := filepath.Base(outcomes[len(outcomes)-1].Destination)
		if err := clipboard.WriteAll(name); err != nil {
			fmt.Println(ui.FormatMuted("(Clipboard access failed, please copy manually)"))
		} else if !classifyJSON {
			fmt.Println()
			fmt.Println(ui.FormatSuccess("Copied " + name))
		}
	}
	return nil
}

func printClassification(o domain.Outcome) {
	c := o.Classification
	fmt.Println(ui.FormatBold(filepath.Base(o.Source)))

	course := c.Course
	if c.IsGeneral() {
		course = ui.FormatMuted("none")
	} else if c.CourseTitle != "" {
		course += " " + ui.FormatMuted("("+c.CourseTitle+")")
	}

	fmt.Println("  " + ui.RenderKeyValue("Category", c.Category))
	fmt.Println("  " + ui.RenderKeyValue("Course", course))
	fmt.Println("  " + ui.RenderKeyValue("Confidence", fmt.Sprintf("%s (score %d, %s)", ui.FormatConfidence(c.Confidence), c.Score, c.Match)))
	if len(c.MatchedKeywords) > 0 {
		fmt.Println("  " + ui.RenderKeyValue("Matched", strings.Join(c.MatchedKeywords, ", ")))
	}
	if o.Metadata.HasTitle() {
		fmt.Println("  " + ui.RenderKeyValue("Title", o.Metadata.Title))
	}
	if o.Metadata.HasAuthor() {
		fmt.Println("  " + ui.RenderKeyValue("Authors", strings.Join(o.Metadata.Authors, "; ")))
	}
	fmt.Println("  " + ui.RenderKeyValue("Destination", relToArchive(o.Destination)))
}
