package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports/mocks"
)

type watchRig struct {
	*harness
	source   *mocks.MockEventSource
	outcomes chan domain.Outcome
	cancel   context.CancelFunc
	done     chan error
}

func startWatcher(t *testing.T, settle time.Duration) *watchRig {
	t.Helper()
	h := newHarness(t, nil)
	rig := &watchRig{
		harness:  h,
		source:   mocks.NewMockEventSource(),
		outcomes: make(chan domain.Outcome, 16),
		done:     make(chan error, 1),
	}

	w, err := NewWatcher(WatcherOptions{
		Organizer:   h.org,
		Source:      rig.source,
		Dirs:        []string{h.inbox, filepath.Join(h.base, "missing")},
		SettleDelay: settle,
		Notify:      func(o domain.Outcome) { rig.outcomes <- o },
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rig.cancel = cancel
	go func() { rig.done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-rig.done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// wait until the source directory is registered
	deadline := time.Now().Add(2 * time.Second)
	for len(rig.source.Dirs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never added a directory")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return rig
}

func (r *watchRig) expectOutcome(t *testing.T, within time.Duration) domain.Outcome {
	t.Helper()
	select {
	case o := <-r.outcomes:
		return o
	case <-time.After(within):
		t.Fatal("timed out waiting for an outcome")
		return domain.Outcome{}
	}
}

func (r *watchRig) expectNothing(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case o := <-r.outcomes:
		t.Fatalf("unexpected outcome for %s: %s", o.Source, o.Status)
	case <-time.After(wait):
	}
}

func TestWatcher_OrganizesSettledFile(t *testing.T) {
	rig := startWatcher(t, 20*time.Millisecond)

	if dirs := rig.source.Dirs(); len(dirs) != 1 || dirs[0] != rig.inbox {
		t.Errorf("watched dirs = %v, want only the inbox", dirs)
	}

	path := rig.drop(t, "EDSP505_behavior_plan.pdf", "plan")
	rig.source.Emit(path, ports.OpCreate)

	out := rig.expectOutcome(t, 2*time.Second)
	if out.Status != domain.StatusOrganized {
		t.Fatalf("status = %s (%v)", out.Status, out.Err)
	}
	if filepath.Base(out.Destination) != "EDSP_505_behavior_plan.pdf" {
		t.Errorf("destination = %s", out.Destination)
	}
}

func TestWatcher_CoalescesEventsPerFile(t *testing.T) {
	settle := 150 * time.Millisecond
	rig := startWatcher(t, settle)

	path := rig.drop(t, "notes.pdf", "partial")
	start := time.Now()
	rig.source.Emit(path, ports.OpCreate)
	time.Sleep(50 * time.Millisecond)
	rig.source.Emit(path, ports.OpWrite)
	time.Sleep(50 * time.Millisecond)
	last := time.Now()
	rig.source.Emit(path, ports.OpWrite)

	out := rig.expectOutcome(t, 2*time.Second)
	if out.Status != domain.StatusOrganized {
		t.Fatalf("status = %s (%v)", out.Status, out.Err)
	}
	if elapsed := time.Since(last); elapsed < settle-10*time.Millisecond {
		t.Errorf("processed %v after the last event, want at least %v (started %v ago)", elapsed, settle, time.Since(start))
	}
	rig.expectNothing(t, 300*time.Millisecond)
}

func TestWatcher_IgnoresArchiveHiddenAndPartial(t *testing.T) {
	rig := startWatcher(t, 10*time.Millisecond)

	inArchive := filepath.Join(rig.root, "General_Research", "2025", "x.pdf")
	if err := os.MkdirAll(filepath.Dir(inArchive), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inArchive, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rig.source.Emit(inArchive, ports.OpCreate)
	rig.source.Emit(rig.drop(t, ".DS_Store", "x"), ports.OpCreate)
	rig.source.Emit(rig.drop(t, "paper.pdf.crdownload", "x"), ports.OpWrite)

	rig.expectNothing(t, 200*time.Millisecond)
	if calls := rig.extractor.GetCalls(); len(calls) != 0 {
		t.Errorf("extractor called for ignored files: %v", calls)
	}
}

func TestWatcher_RemoveCancelsPending(t *testing.T) {
	rig := startWatcher(t, 100*time.Millisecond)

	path := rig.drop(t, "temp.pdf", "x")
	rig.source.Emit(path, ports.OpCreate)
	rig.source.Emit(path, ports.OpRemove)

	rig.expectNothing(t, 300*time.Millisecond)
}

func TestWatcher_VanishedFileIsSkipped(t *testing.T) {
	rig := startWatcher(t, 20*time.Millisecond)

	path := rig.drop(t, "renamed.pdf", "x")
	rig.source.Emit(path, ports.OpRename)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	rig.expectNothing(t, 200*time.Millisecond)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	rig := startWatcher(t, time.Hour)
	rig.source.Emit(rig.drop(t, "a.pdf", "a"), ports.OpCreate)

	rig.cancel()
	select {
	case err := <-rig.done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
		rig.done <- err
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_NoUsableDirectories(t *testing.T) {
	h := newHarness(t, nil)
	w, err := NewWatcher(WatcherOptions{
		Organizer: h.org,
		Source:    mocks.NewMockEventSource(),
		Dirs:      []string{filepath.Join(h.base, "nope")},
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	if err := w.Run(context.Background()); err == nil {
		t.Error("expected an error when nothing can be watched")
	}
}

func TestSettleQueue(t *testing.T) {
	q := newSettleQueue()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	q.push("/b", t0.Add(2*time.Second))
	q.push("/a", t0.Add(3*time.Second))
	q.push("/b", t0.Add(4*time.Second)) // re-event pushes /b back
	q.push("/c", t0.Add(1*time.Second))

	if q.len() != 3 {
		t.Fatalf("len = %d, want 3", q.len())
	}
	if next, _ := q.next(); !next.Equal(t0.Add(time.Second)) {
		t.Errorf("next = %v", next)
	}

	got := q.popDue(t0.Add(3 * time.Second))
	if len(got) != 2 || got[0] != "/c" || got[1] != "/a" {
		t.Errorf("popDue = %v, want [/c /a]", got)
	}
	if q.len() != 1 {
		t.Errorf("expected /b to remain pending")
	}

	q.remove("/b")
	if _, ok := q.next(); ok {
		t.Error("queue should be empty")
	}
}
