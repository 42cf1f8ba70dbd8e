package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), ".rfm", "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

	first, err := store.Record(ctx, domain.LedgerEntry{
		SourcePath:  "/in/EDSP505_plan.pdf",
		DestPath:    "/out/EDSP 505/2025/EDSP_505_plan.pdf",
		SHA256:      "aaa",
		Size:        42,
		Category:    "papers",
		Course:      "EDSP 505",
		Confidence:  domain.ConfidenceHigh,
		Status:      domain.StatusOrganized,
		ZoteroKey:   "ABCD1234",
		SummaryPath: "/sum/1.json",
		ProcessedAt: at,
	})
	require.NoError(t, err)

	second, err := store.Record(ctx, domain.LedgerEntry{
		SourcePath:  "/in/copy.pdf",
		DestPath:    "/out/EDSP 505/2025/EDSP_505_plan.pdf",
		SHA256:      "aaa",
		Status:      domain.StatusDuplicate,
		ProcessedAt: at.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "/in/copy.pdf", entries[0].SourcePath, "newest first")
	assert.Empty(t, entries[0].Course)

	got := entries[1]
	assert.Equal(t, first, got.ID)
	assert.Equal(t, "EDSP 505", got.Course)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Equal(t, "ABCD1234", got.ZoteroKey)
	assert.Equal(t, int64(42), got.Size)
	assert.True(t, got.ProcessedAt.Equal(at))
}

func TestStore_RecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, domain.LedgerEntry{SourcePath: "/in/x", SHA256: "h", Status: domain.StatusOrganized})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStore_FindByHash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	missing, err := store.FindByHash(ctx, "nothing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	for _, e := range []domain.LedgerEntry{
		{SourcePath: "/in/a", DestPath: "/out/a_old", SHA256: "h1", Status: domain.StatusOrganized},
		{SourcePath: "/in/b", DestPath: "/out/a_new", SHA256: "h1", Status: domain.StatusOrganized},
		{SourcePath: "/in/c", DestPath: "/out/a_new", SHA256: "h1", Status: domain.StatusDuplicate},
		{SourcePath: "/in/d", DestPath: "/out/d", SHA256: "h2", Status: domain.StatusDuplicate},
	} {
		_, err := store.Record(ctx, e)
		require.NoError(t, err)
	}

	found, err := store.FindByHash(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "/out/a_new", found.DestPath)
	assert.Equal(t, domain.StatusOrganized, found.Status)

	onlyDuplicates, err := store.FindByHash(ctx, "h2")
	require.NoError(t, err)
	assert.Nil(t, onlyDuplicates, "duplicates are never a prior copy")
}

func TestStore_StatusCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, s := range []domain.Status{domain.StatusOrganized, domain.StatusOrganized, domain.StatusDuplicate} {
		_, err := store.Record(ctx, domain.LedgerEntry{SourcePath: "/in/x", SHA256: "h", Status: s})
		require.NoError(t, err)
	}

	counts, err := store.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Status]int{domain.StatusOrganized: 2, domain.StatusDuplicate: 1}, counts)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	_, err = store.Record(context.Background(), domain.LedgerEntry{SourcePath: "/in/x", SHA256: "h", Status: domain.StatusOrganized})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type codeErr int

func (c codeErr) Error() string { return "sqlite error" }
func (c codeErr) Code() int     { return int(c) }

func TestRetryOnBusy(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnBusy(context.Background(), func() error {
		calls++
		return codeErr(5)
	})
	assert.Error(t, err)
	assert.Equal(t, 5, calls)

	calls = 0
	err = retryOnBusy(context.Background(), func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-busy errors are not retried")
}
