package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/compiler"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/extractor"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/fsx"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/ledger"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/lock"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/publisher"
	"github.com/kamal-hamza/rfm-cli/internal/adapters/repository"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/internal/core/services"
	"github.com/kamal-hamza/rfm-cli/pkg/archive"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
	"github.com/kamal-hamza/rfm-cli/pkg/ui"
)

var (
	// Global flags
	configPath string
	verbose    bool

	appConfig  *config.Config
	appArchive *archive.Archive
	logger     *slog.Logger
	closeLog   func() error

	projectService *services.ProjectService
	summaryRepo    *repository.SummaryRepository
)

var rootCmd = &cobra.Command{
	Use:   "rfm",
	Short: "RFM - research file manager",
	Long: ui.StyleTitle.Render("RFM") + " - Research File Manager\n\n" +
		"Sorts downloaded papers, books, slides and media into a course-aware\n" +
		"archive, extracts their metadata and hands them to Zotero and Calibre.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute runs the root command. Only startup, configuration and lock
// errors produce a non-zero exit.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/rfm/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(processAllCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads the configuration and builds the shared components
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	if configPath == "" {
		p, err := archive.DefaultConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println(ui.FormatError("Invalid configuration"))
		fmt.Println(ui.FormatMuted(configPath))
		return err
	}
	appConfig = cfg
	appArchive = archive.New(cfg)

	l, closer, err := logging.NewFromConfig(cfg, verbose)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger, closeLog = l, closer
	logger.Debug("configuration loaded", logging.Path(configPath))

	summaryRepo = repository.NewSummaryRepository(appArchive.SummariesPath)

	var latex ports.Compiler
	if cfg.WritingTools.Latex.Enabled {
		latex = compiler.New(cfg.WritingTools.Latex, logger)
	}
	projectService = services.NewProjectService(appArchive.ProjectsPath, latex, logger)

	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if closeLog != nil {
		return closeLog()
	}
	return nil
}

// processFlags are shared by the commands that organize files
type processFlags struct {
	dryRun    bool
	copyMode  bool
	recursive bool
}

func (f *processFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "show what would happen without touching any file")
	cmd.Flags().BoolVar(&f.copyMode, "copy", false, "copy files into the archive instead of moving them")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "descend into subdirectories")
}

// session holds everything an organizing command needs; release undoes it
type session struct {
	organizer *services.Organizer
	ledger    *ledger.Store
	lock      *lock.Lock
}

func (s *session) release() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			logger.Warn("failed to close ledger", logging.Error(err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			logger.Warn("failed to release lock", logging.Error(err))
		}
	}
}

// newSession wires the organizer from the configuration. Outside of
// dry-run mode it takes the archive lock first.
func newSession(flags processFlags) (*session, error) {
	s := &session{}

	if !flags.dryRun {
		if err := appArchive.Initialize(); err != nil {
			return nil, err
		}
		l, err := lock.Acquire(appArchive.LockPath())
		if err != nil {
			return nil, err
		}
		s.lock = l
	}

	org, err := buildOrganizer(s, flags)
	if err != nil {
		s.release()
		return nil, err
	}
	s.organizer = org
	return s, nil
}

func buildOrganizer(s *session, flags processFlags) (*services.Organizer, error) {
	cfg := appConfig
	rules := cfg.Rules()

	classifier, err := services.NewClassifier(rules, services.ClassifierOptions{
		Strategy:     cfg.Classification.Strategy,
		Threshold:    cfg.Classification.Threshold,
		ContentChars: cfg.Classification.ContentChars,
	})
	if err != nil {
		return nil, err
	}

	names := services.NewFilenameGenerator(services.FilenameOptions{
		NoiseWords:      cfg.FileNaming.NoiseWords,
		GenericNames:    cfg.FileNaming.GenericNames,
		AddCoursePrefix: cfg.FileNaming.AddCoursePrefix,
		UseAuthorYear:   cfg.FileNaming.UseAuthorYear,
		AddTimestamp:    cfg.FileNaming.AddTimestamp,
		MaxLength:       cfg.FileNaming.MaxLength,
	})

	opts := services.OrganizerOptions{
		Logger:         logger,
		Classifier:     classifier,
		Names:          names,
		Resolver:       services.NewResolver(appArchive.OrganizedPath, rules, nil),
		Extractor:      extractor.NewFromConfig(cfg, logger),
		Sources:        cfg.SourceDirectories,
		Mode:           fsx.ModeMove,
		DryRun:         flags.dryRun,
		Recursive:      flags.recursive || cfg.AutoOrganization.Recursive,
		IgnorePatterns: cfg.AutoOrganization.IgnorePatterns,
		ExcludeDirs:    []string{appArchive.SummariesPath, appArchive.ProjectsPath, appArchive.StatePath},
	}
	if flags.copyMode || !cfg.AutoOrganization.MoveFiles {
		opts.Mode = fsx.ModeCopy
	}

	if !flags.dryRun {
		pubs, err := publisher.FromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
		opts.Publishers = pubs
		opts.Summaries = summaryRepo

		// without a ledger, duplicates are only detected by name
		store, err := ledger.Open(appArchive.LedgerPath(), logger)
		if err != nil {
			logger.Warn("ledger unavailable", logging.Path(appArchive.LedgerPath()), logging.Error(err))
		} else {
			s.ledger = store
			opts.Ledger = store
		}
	}

	return services.NewOrganizer(opts)
}
