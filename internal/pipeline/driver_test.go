package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-profiler/internal/aggregator"
	"github.com/JakeFAU/company-profiler/internal/clock/system"
	"github.com/JakeFAU/company-profiler/internal/company"
	"github.com/JakeFAU/company-profiler/internal/dispatcher"
	"github.com/JakeFAU/company-profiler/internal/extractor"
)

type fixedIDs struct {
	id  string
	err error
}

func (f fixedIDs) NewID() (string, error) { return f.id, f.err }

type memoryStore struct {
	mu       sync.Mutex
	pending  []company.Record
	fetchErr error
	written  map[int64][]string
}

func newMemoryStore(records ...company.Record) *memoryStore {
	return &memoryStore{pending: records, written: make(map[int64][]string)}
}

func (s *memoryStore) FetchBatch(_ context.Context, limit int) ([]company.Record, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	n := min(limit, len(s.pending))
	return append([]company.Record(nil), s.pending[:n]...), nil
}

func (s *memoryStore) UpdateDescription(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[id] = append(s.written[id], text)
	return nil
}

// pageBrowser serves canned pages by URL and tracks concurrent sessions.
type pageBrowser struct {
	pages  map[string][]string
	delay  time.Duration
	active atomic.Int64
	peak   atomic.Int64
}

func (b *pageBrowser) Open(context.Context) (company.Session, error) {
	n := b.active.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &pageSession{browser: b}, nil
}

type pageSession struct {
	browser *pageBrowser
	url     string
	closed  bool
}

func (s *pageSession) Navigate(_ context.Context, url string) error {
	time.Sleep(s.browser.delay)
	if _, ok := s.browser.pages[url]; !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED %s", url)
	}
	s.url = url
	return nil
}

func (s *pageSession) WaitReady(context.Context, time.Duration) error { return nil }
func (s *pageSession) ScrollToBottom(context.Context) error          { return nil }

func (s *pageSession) Texts(context.Context) ([]string, error) {
	return s.browser.pages[s.url], nil
}

func (s *pageSession) Close() error {
	if !s.closed {
		s.closed = true
		s.browser.active.Add(-1)
	}
	return nil
}

func newDriver(t *testing.T, store *memoryStore, browser company.Browser, limit int, mode dispatcher.Mode) *Driver {
	t.Helper()
	disp, err := dispatcher.New(limit, mode)
	require.NoError(t, err)
	ex := extractor.New(browser, extractor.Config{ReadyTimeout: time.Second}, nil, zap.NewNop())
	agg := aggregator.New(store, nil, nil, nil, nil, nil, aggregator.Config{}, zap.NewNop())
	d, err := NewDriver(store, disp, ex, agg, fixedIDs{id: "run-1"}, system.New(), nil, Config{BatchSize: 400}, zap.NewNop())
	require.NoError(t, err)
	return d
}

func TestRunPersistsSuccessfulRecords(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(
		company.Record{ID: 1, URL: "https://a.test"},
		company.Record{ID: 2, URL: "https://b.test"},
	)
	browser := &pageBrowser{pages: map[string][]string{
		"https://a.test": {"Hello", `He said "hi"`},
	}}

	report, err := newDriver(t, store, browser, 4, dispatcher.ModeRounds).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 2, report.Stats.Received)
	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.Persisted)
	assert.Equal(t, map[int64][]string{1: {"Hello He said hi"}}, store.written)
	assert.Zero(t, browser.active.Load())
}

func TestRunEmptyBatch(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	browser := &pageBrowser{}

	report, err := newDriver(t, store, browser, 4, dispatcher.ModeRounds).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Records)
	assert.Equal(t, aggregator.Stats{}, report.Stats)
	assert.Zero(t, report.PeakConcurrency)
	assert.Zero(t, browser.peak.Load())
}

func TestRunSourceErrorIsTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(company.Record{ID: 1, URL: "https://a.test"})
	store.fetchErr = errors.New("connection refused")

	report, err := newDriver(t, store, &pageBrowser{}, 2, dispatcher.ModePool).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Records)
	assert.Empty(t, store.written)
}

func TestRunSequentialWithLimitOne(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(
		company.Record{ID: 1, URL: "https://a.test"},
		company.Record{ID: 2, URL: "https://b.test"},
		company.Record{ID: 3, URL: "https://c.test"},
	)
	browser := &pageBrowser{
		delay: 5 * time.Millisecond,
		pages: map[string][]string{
			"https://a.test": {"a"},
			"https://b.test": {"b"},
			"https://c.test": {"c"},
		},
	}

	report, err := newDriver(t, store, browser, 1, dispatcher.ModeRounds).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Stats.Persisted)
	assert.Equal(t, 1, report.PeakConcurrency)
	assert.Equal(t, int64(1), browser.peak.Load())
}

func TestRunEveryRecordYieldsOneEnvelope(t *testing.T) {
	t.Parallel()

	for _, mode := range []dispatcher.Mode{dispatcher.ModeRounds, dispatcher.ModePool} {
		for _, n := range []int{1, 7, 50} {
			t.Run(fmt.Sprintf("%s/%d", mode, n), func(t *testing.T) {
				t.Parallel()

				records := make([]company.Record, n)
				pages := make(map[string][]string)
				for i := range records {
					url := fmt.Sprintf("https://%d.test", i)
					records[i] = company.Record{ID: int64(i + 1), URL: url}
					if i%3 != 0 {
						pages[url] = []string{fmt.Sprintf("company %d", i)}
					}
				}
				store := newMemoryStore(records...)
				browser := &pageBrowser{pages: pages, delay: time.Millisecond}

				report, err := newDriver(t, store, browser, 4, mode).Run(context.Background())
				require.NoError(t, err)
				assert.Equal(t, n, report.Stats.Received)
				assert.Equal(t, n, report.Stats.Failed+report.Stats.Persisted)
				assert.LessOrEqual(t, browser.peak.Load(), int64(4))
				assert.GreaterOrEqual(t, report.PeakConcurrency, 1)
				assert.LessOrEqual(t, report.PeakConcurrency, 4)
				for id, writes := range store.written {
					assert.Len(t, writes, 1, "company %d written more than once", id)
				}
			})
		}
	}
}

type failingConsumer struct{}

func (failingConsumer) Run(ctx context.Context, _ string, src company.ResultSource) (aggregator.Stats, error) {
	return aggregator.Stats{}, errors.New("store unavailable")
}

func TestRunReportsAggregatorFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(company.Record{ID: 1, URL: "https://a.test"})
	disp, err := dispatcher.New(1, dispatcher.ModeRounds)
	require.NoError(t, err)
	ex := extractor.New(&pageBrowser{pages: map[string][]string{"https://a.test": {"a"}}}, extractor.Config{}, nil, nil)
	d, err := NewDriver(store, disp, ex, failingConsumer{}, fixedIDs{id: "run-2"}, system.New(), nil, Config{BatchSize: 10}, nil)
	require.NoError(t, err)

	report, err := d.Run(context.Background())
	require.ErrorContains(t, err, "store unavailable")
	assert.Equal(t, "run-2", report.RunID)
}

func TestRunIDFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	disp, err := dispatcher.New(1, dispatcher.ModeRounds)
	require.NoError(t, err)
	d, err := NewDriver(store, disp, extractor.New(&pageBrowser{}, extractor.Config{}, nil, nil),
		failingConsumer{}, fixedIDs{err: errors.New("entropy")}, system.New(), nil, Config{BatchSize: 1}, nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorContains(t, err, "entropy")
}

func TestNewDriverValidation(t *testing.T) {
	t.Parallel()

	disp, err := dispatcher.New(1, dispatcher.ModeRounds)
	require.NoError(t, err)
	_, err = NewDriver(nil, disp, nil, nil, nil, nil, nil, Config{BatchSize: 1}, nil)
	require.Error(t, err)

	store := newMemoryStore()
	_, err = NewDriver(store, disp, extractor.New(&pageBrowser{}, extractor.Config{}, nil, nil),
		failingConsumer{}, fixedIDs{}, system.New(), nil, Config{}, nil)
	require.ErrorContains(t, err, "batch size")
}
