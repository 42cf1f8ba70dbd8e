package mocks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
)

// --- MockExtractor ---

// MockExtractor returns canned metadata keyed by base name
type MockExtractor struct {
	mu       sync.RWMutex
	metadata map[string]domain.Metadata
	failures map[string]error
	calls    []string
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		metadata: make(map[string]domain.Metadata),
		failures: make(map[string]error),
	}
}

func (m *MockExtractor) Extract(ctx context.Context, rec domain.FileRecord) (domain.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, rec.Path)
	if err, ok := m.failures[rec.Name]; ok {
		return domain.EmptyMetadata(), err
	}
	if meta, ok := m.metadata[rec.Name]; ok {
		return meta, nil
	}
	return domain.EmptyMetadata(), nil
}

func (m *MockExtractor) Set(name string, meta domain.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[name] = meta
}

func (m *MockExtractor) SetFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[name] = err
}

func (m *MockExtractor) GetCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// --- MockPublisher ---

type MockPublisher struct {
	mu         sync.Mutex
	name       string
	categories []string
	nextID     int
	shouldFail bool
	failError  error
	requests   []ports.PublishRequest
}

// NewMockPublisher accepts every category when none are given
func NewMockPublisher(name string, categories ...string) *MockPublisher {
	return &MockPublisher{name: name, categories: categories}
}

func (m *MockPublisher) Name() string {
	return m.name
}

func (m *MockPublisher) Accepts(category string) bool {
	if len(m.categories) == 0 {
		return true
	}
	for _, c := range m.categories {
		if c == category {
			return true
		}
	}
	return false
}

func (m *MockPublisher) Publish(ctx context.Context, req ports.PublishRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.shouldFail {
		if m.failError != nil {
			return "", m.failError
		}
		return "", fmt.Errorf("%s publish failed for %s", m.name, req.Path)
	}
	m.nextID++
	return fmt.Sprintf("%s-%d", m.name, m.nextID), nil
}

func (m *MockPublisher) SetShouldFail(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
	m.failError = err
}

func (m *MockPublisher) GetRequests() []ports.PublishRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]ports.PublishRequest, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// --- MockLedger ---

type MockLedger struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
}

func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

func (m *MockLedger) Record(ctx context.Context, entry domain.LedgerEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *MockLedger) FindByHash(ctx context.Context, sha256 string) (*domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.SHA256 == sha256 && e.Status == domain.StatusOrganized {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *MockLedger) Recent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.LedgerEntry
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *MockLedger) Close() error {
	return nil
}

func (m *MockLedger) Entries() []domain.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]domain.LedgerEntry, len(m.entries))
	copy(entries, m.entries)
	return entries
}

// --- MockSummaryWriter ---

type MockSummaryWriter struct {
	mu        sync.Mutex
	summaries []domain.Summary
}

func NewMockSummaryWriter() *MockSummaryWriter {
	return &MockSummaryWriter{}
}

func (m *MockSummaryWriter) Write(ctx context.Context, summary domain.Summary) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, summary)
	return fmt.Sprintf("/fake/summaries/%d.json", len(m.summaries)), nil
}

func (m *MockSummaryWriter) Summaries() []domain.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Summary, len(m.summaries))
	copy(out, m.summaries)
	return out
}

// --- MockCompiler ---

// MockCompiler writes an empty PDF next to the input unless told to fail
type MockCompiler struct {
	mu         sync.Mutex
	calls      []string
	shouldFail bool
	failError  error
}

func NewMockCompiler() *MockCompiler {
	return &MockCompiler{}
}

func (m *MockCompiler) Compile(ctx context.Context, inputPath string) (*domain.BuildResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, inputPath)

	if m.shouldFail {
		err := m.failError
		if err == nil {
			err = fmt.Errorf("compile failed for %s", inputPath)
		}
		return &domain.BuildResult{Errors: []string{err.Error()}}, err
	}

	pdf := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".pdf"
	if err := os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0644); err != nil {
		return nil, err
	}
	return &domain.BuildResult{Success: true, PDFPath: pdf}, nil
}

func (m *MockCompiler) SetShouldFail(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
	m.failError = err
}

func (m *MockCompiler) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// --- MockEventSource ---

// MockEventSource lets tests inject filesystem events by hand
type MockEventSource struct {
	mu     sync.Mutex
	dirs   []string
	events chan ports.FileEvent
	errors chan error
	closed bool
}

func NewMockEventSource() *MockEventSource {
	return &MockEventSource{
		events: make(chan ports.FileEvent, 64),
		errors: make(chan error, 8),
	}
}

func (m *MockEventSource) Add(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = append(m.dirs, dir)
	return nil
}

func (m *MockEventSource) Events() <-chan ports.FileEvent { return m.events }
func (m *MockEventSource) Errors() <-chan error           { return m.errors }

func (m *MockEventSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
		close(m.errors)
	}
	return nil
}

// Emit queues an event
func (m *MockEventSource) Emit(path string, op ports.EventOp) {
	m.events <- ports.FileEvent{Path: path, Op: op}
}

func (m *MockEventSource) EmitError(err error) {
	m.errors <- err
}

func (m *MockEventSource) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirs := append([]string(nil), m.dirs...)
	sort.Strings(dirs)
	return dirs
}
