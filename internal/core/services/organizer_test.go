package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/rfm-cli/internal/adapters/fsx"
	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports/mocks"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

type harness struct {
	org       *Organizer
	base      string
	inbox     string
	root      string
	extractor *mocks.MockExtractor
	ledger    *mocks.MockLedger
	summaries *mocks.MockSummaryWriter
	zotero    *mocks.MockPublisher
	calibre   *mocks.MockPublisher
}

func newHarness(t *testing.T, mutate func(*OrganizerOptions)) *harness {
	t.Helper()

	cfg := config.DefaultConfig()
	base := t.TempDir()
	h := &harness{
		base:      base,
		inbox:     filepath.Join(base, "Downloads"),
		root:      filepath.Join(base, "Research", "Organized_Research"),
		extractor: mocks.NewMockExtractor(),
		ledger:    mocks.NewMockLedger(),
		summaries: mocks.NewMockSummaryWriter(),
		zotero:    mocks.NewMockPublisher("zotero", "papers", "books"),
		calibre:   mocks.NewMockPublisher("calibre", "books"),
	}
	require.NoError(t, os.MkdirAll(h.inbox, 0o755))

	opts := OrganizerOptions{
		Classifier:     newDefaultClassifier(t, StrategyScored),
		Names:          newDefaultGenerator(),
		Resolver:       NewResolver(h.root, cfg.Rules(), fixedClock),
		Extractor:      h.extractor,
		Publishers:     []ports.Publisher{h.zotero, h.calibre},
		Ledger:         h.ledger,
		Summaries:      h.summaries,
		Now:            fixedClock,
		Sources:        []string{h.inbox},
		Mode:           fsx.ModeMove,
		IgnorePatterns: cfg.AutoOrganization.IgnorePatterns,
		ExcludeDirs:    []string{filepath.Join(base, "Research", "Research_Summaries")},
	}
	if mutate != nil {
		mutate(&opts)
	}

	org, err := NewOrganizer(opts)
	require.NoError(t, err)
	h.org = org
	return h
}

func (h *harness) drop(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.inbox, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOrganizer_Organize(t *testing.T) {
	h := newHarness(t, nil)
	src := h.drop(t, "EDSP505_behavior_plan.pdf", "plan")

	out := h.org.Organize(context.Background(), src)

	require.NoError(t, out.Err)
	assert.Equal(t, domain.StatusOrganized, out.Status)
	assert.Equal(t, filepath.Join(h.root, "EDSP 505", "2025", "EDSP_505_behavior_plan.pdf"), out.Destination)
	assert.Equal(t, "EDSP 505", out.Classification.Course)
	assert.Equal(t, domain.ConfidenceHigh, out.Classification.Confidence)
	assert.NoFileExists(t, src)
	assert.FileExists(t, out.Destination)

	assert.Equal(t, map[string]string{"zotero": "zotero-1"}, out.ExternalIDs)
	assert.Empty(t, h.calibre.GetRequests(), "calibre only takes books")
	reqs := h.zotero.GetRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, out.Destination, reqs[0].Path)
	assert.Equal(t, "EDSP_505_behavior_plan.pdf", reqs[0].Record.Name)

	summaries := h.summaries.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, src, summaries[0].OriginalFile)
	assert.Equal(t, out.Destination, summaries[0].OrganizedFile)
	assert.NotEmpty(t, summaries[0].ID)
	assert.Equal(t, "/fake/summaries/1.json", out.SummaryPath)

	entries := h.ledger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "zotero-1", entries[0].ZoteroKey)
	assert.Equal(t, out.Hash, entries[0].SHA256)
	assert.Equal(t, domain.StatusOrganized, entries[0].Status)
}

func TestOrganizer_Collision(t *testing.T) {
	h := newHarness(t, nil)
	existing := filepath.Join(h.root, domain.GeneralBucket, "2025", "report.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))

	out := h.org.Organize(context.Background(), h.drop(t, "report.pdf", "new"))

	require.Equal(t, domain.StatusOrganized, out.Status)
	assert.Equal(t, "report_1.pdf", filepath.Base(out.Destination))
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestOrganizer_DryRun(t *testing.T) {
	h := newHarness(t, func(o *OrganizerOptions) { o.DryRun = true })
	src := h.drop(t, "EDSP505_behavior_plan.pdf", "plan")

	out := h.org.Organize(context.Background(), src)

	assert.Equal(t, domain.StatusPlanned, out.Status)
	assert.Equal(t, filepath.Join(h.root, "EDSP 505", "2025", "EDSP_505_behavior_plan.pdf"), out.Destination)
	assert.FileExists(t, src)
	assert.NoDirExists(t, h.root)
	assert.Empty(t, h.zotero.GetRequests())
	assert.Empty(t, h.summaries.Summaries())
	assert.Empty(t, h.ledger.Entries())
}

func TestOrganizer_Ignored(t *testing.T) {
	h := newHarness(t, nil)

	for _, name := range []string{"movie.mp4.crdownload", ".DS_Store", "~$draft.docx", "big.PART"} {
		out := h.org.Organize(context.Background(), h.drop(t, name, "x"))
		assert.Equal(t, domain.StatusSkipped, out.Status, name)
		assert.ErrorIs(t, out.Err, domain.ErrIgnored, name)
	}
	assert.Empty(t, h.extractor.GetCalls())
}

func TestOrganizer_MissingFile(t *testing.T) {
	h := newHarness(t, nil)

	out := h.org.Organize(context.Background(), filepath.Join(h.inbox, "gone.pdf"))

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.Error(t, out.Err)
}

func TestOrganizer_PublisherFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.zotero.SetShouldFail(true, errors.New("403 forbidden"))

	out := h.org.Organize(context.Background(), h.drop(t, "EDSP554 quiz.pdf", "quiz"))

	assert.Equal(t, domain.StatusOrganized, out.Status)
	assert.Empty(t, out.ExternalIDs)
	assert.FileExists(t, out.Destination)
	assert.Len(t, h.ledger.Entries(), 1)
}

func TestOrganizer_ExtractorFailureFallsBackToFilename(t *testing.T) {
	h := newHarness(t, nil)
	h.extractor.SetFailure("EDSP554 quiz.pdf", errors.New("pdfinfo exploded"))

	out := h.org.Organize(context.Background(), h.drop(t, "EDSP554 quiz.pdf", "quiz"))

	assert.Equal(t, domain.StatusOrganized, out.Status)
	assert.Equal(t, "EDSP 554", out.Classification.Course)
	assert.Equal(t, domain.KindNone, out.Metadata.Kind)
}

func TestOrganizer_MetadataDrivesClassification(t *testing.T) {
	h := newHarness(t, nil)
	meta := domain.NewMetadata(domain.PDFDetails{Pages: 4})
	meta.Text = "EDSP 554 Assessment in Special Education syllabus"
	h.extractor.Set("syllabus.pdf", meta)

	out := h.org.Organize(context.Background(), h.drop(t, "syllabus.pdf", "s"))

	assert.Equal(t, "EDSP 554", out.Classification.Course)
	assert.Equal(t, domain.ConfidenceVeryHigh, out.Classification.Confidence)
	assert.Equal(t, "EDSP_554_syllabus.pdf", filepath.Base(out.Destination))
}

func TestOrganizer_NonCourseCategoryBucket(t *testing.T) {
	h := newHarness(t, nil)

	out := h.org.Organize(context.Background(), h.drop(t, "Deep Work.epub", "book"))

	assert.Equal(t, filepath.Join(h.root, "Books", "2025", "Deep_Work.epub"), out.Destination)
	assert.Equal(t, map[string]string{"zotero": "zotero-1", "calibre": "calibre-1"}, out.ExternalIDs)
}

func TestOrganizer_ReprocessingArchiveIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	first := h.org.Organize(context.Background(), h.drop(t, "EDSP505_behavior_plan.pdf", "plan"))
	require.Equal(t, domain.StatusOrganized, first.Status)

	again := h.org.Organize(context.Background(), first.Destination)

	assert.Equal(t, domain.StatusUnchanged, again.Status)
	assert.Equal(t, first.Destination, again.Destination)
	assert.FileExists(t, first.Destination)
	assert.Len(t, h.zotero.GetRequests(), 1)

	summaries := h.summaries.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.StatusUnchanged, summaries[1].Status)
	assert.Equal(t, first.Destination, summaries[1].OrganizedFile)
	assert.NotEmpty(t, again.SummaryPath)
}

func TestOrganizer_CopyModeDuplicate(t *testing.T) {
	h := newHarness(t, func(o *OrganizerOptions) { o.Mode = fsx.ModeCopy })
	src := h.drop(t, "report.pdf", "same")

	first := h.org.Organize(context.Background(), src)
	second := h.org.Organize(context.Background(), src)

	require.Equal(t, domain.StatusOrganized, first.Status)
	assert.FileExists(t, src)
	assert.Equal(t, domain.StatusDuplicate, second.Status)
	assert.Equal(t, first.Destination, second.Destination)
	assert.Len(t, h.zotero.GetRequests(), 1)

	summaries := h.summaries.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.StatusDuplicate, summaries[1].Status)
	assert.Equal(t, src, summaries[1].OriginalFile)
	assert.Equal(t, first.Destination, summaries[1].OrganizedFile)
	assert.Equal(t, "/fake/summaries/2.json", second.SummaryPath)
}

func TestOrganizer_CancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := h.org.Organize(ctx, h.drop(t, "report.pdf", "x"))

	assert.Equal(t, domain.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestNewOrganizer_Validation(t *testing.T) {
	_, err := NewOrganizer(OrganizerOptions{})
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	_, err = NewOrganizer(OrganizerOptions{
		Classifier:     newDefaultClassifier(t, StrategyScored),
		Names:          newDefaultGenerator(),
		Resolver:       NewResolver("/x", cfg.Rules(), nil),
		Extractor:      mocks.NewMockExtractor(),
		IgnorePatterns: []string{"[bad"},
	})
	assert.Error(t, err)
}
