package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/services"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	projectType        string
	projectDescription string
	projectOpenRTF     bool
	projectCompileOpen bool
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"p"},
	Short:   "Manage research writing projects",
	Long: `Create and build research writing projects.

A project lives in Projects/<Name>/ with Research, Writing, Drafts,
Final and Bibliography folders.

Examples:
  rfm project new "Behavior Study" --type report
  rfm project list
  rfm project compile "Behavior Study"
  rfm project open "Behavior Study" --rtf`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Args:    cobra.NoArgs,
	RunE:    runProjectList,
}

var projectCompileCmd = &cobra.Command{
	Use:   "compile <name>",
	Short: "Compile the project's LaTeX document into Final/",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCompile,
}

var projectOpenCmd = &cobra.Command{
	Use:   "open <name>",
	Short: "Open the project's writing file",
	Long: `Open the project's writing file.

The LaTeX file opens in TeXstudio when it is enabled, the RTF file in
Bean; otherwise the operating system default application is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectOpen,
}

func init() {
	projectNewCmd.Flags().StringVarP(&projectType, "type", "t", "article", "document type (article, report, thesis)")
	projectNewCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "short description")
	projectCompileCmd.Flags().BoolVarP(&projectCompileOpen, "open", "o", false, "open the PDF after a successful build")
	projectOpenCmd.Flags().BoolVar(&projectOpenRTF, "rtf", false, "open the RTF document instead of LaTeX")

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectCompileCmd)
	projectCmd.AddCommand(projectOpenCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseProjectType(projectType)
	if err != nil {
		return err
	}

	p, err := projectService.Create(cmd.Context(), services.CreateProjectRequest{
		Name:        args[0],
		Type:        kind,
		Description: projectDescription,
	})
	if err != nil {
		fmt.Println(ui.FormatError("Failed to create project"))
		return err
	}

	fmt.Println(ui.FormatSuccess("Project created: " + p.Name))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Type", string(p.Type)))
	fmt.Println(ui.RenderKeyValue("Location", p.Path))
	fmt.Println()
	fmt.Println(ui.FormatMuted("  rfm project open \"" + p.Name + "\""))
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	projects, err := projectService.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println(ui.FormatInfo("No projects yet"))
		fmt.Println(ui.FormatMuted("  rfm project new <name>"))
		return nil
	}

	table := ui.NewTable(
		ui.TableColumn{Header: "Name", MaxWidth: 32},
		ui.TableColumn{Header: "Type"},
		ui.TableColumn{Header: "Status"},
		ui.TableColumn{Header: "Created"},
		ui.TableColumn{Header: "Description", MaxWidth: 40},
	)
	for _, p := range projects {
		created := "-"
		if !p.Created.IsZero() {
			created = humanize.Time(p.Created)
		}
		table.AddRow(p.Name, string(p.Type), p.Status, created, p.Description)
	}
	fmt.Print(table.Render())
	return nil
}

func runProjectCompile(cmd *cobra.Command, args []string) error {
	fmt.Println(ui.FormatRocket("Compiling LaTeX..."))

	resp, err := projectService.Compile(cmd.Context(), args[0])
	if err != nil {
		fmt.Println(ui.FormatError("Build failed"))
		if resp != nil && resp.Result != nil {
			printBuildIssues(resp.Result)
		}
		return err
	}

	fmt.Println(ui.FormatSuccess("Build completed successfully!"))
	if n := len(resp.Result.Warnings); n > 0 {
		fmt.Println(ui.FormatMuted(fmt.Sprintf("%d warning(s) (LaTeX warnings can usually be ignored)", n)))
	}
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Output", resp.FinalPath))

	if projectCompileOpen {
		if err := OpenFile(resp.FinalPath, ""); err != nil {
			fmt.Println(ui.FormatWarning("Failed to open PDF: " + err.Error()))
		}
	}
	return nil
}

func printBuildIssues(r *domain.BuildResult) {
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		return
	}
	fmt.Println()
	for _, e := range r.Errors {
		fmt.Println("  " + ui.FormatError(e))
	}
	for _, w := range r.Warnings {
		fmt.Println("  " + ui.FormatWarning(w))
	}
}

func runProjectOpen(cmd *cobra.Command, args []string) error {
	kind := "tex"
	if projectOpenRTF {
		kind = "rtf"
	}

	path, err := projectService.WritingFile(args[0], kind)
	if err != nil {
		return err
	}

	viewer := writingTool(path)
	fmt.Println(ui.FormatInfo("Opening " + path))
	return OpenFile(path, viewer)
}

// writingTool returns the configured editor for the file, or "" for the
// OS default
func writingTool(path string) string {
	tools := appConfig.WritingTools
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".tex") && tools.TeXstudio.Enabled:
		return tools.TeXstudio.Path
	case strings.HasSuffix(lower, ".rtf") && tools.Bean.Enabled:
		return tools.Bean.Path
	default:
		return ""
	}
}
