package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipp01105/lumber/core"
	"github.com/philipp01105/lumber/sink"
	"github.com/philipp01105/lumber/sink/sinktest"
)

func msg(flag core.Flag, text string) *core.Message {
	return core.NewMessage(core.MessageParams{
		Text:  text,
		Flag:  flag,
		Level: flag.Level(),
	})
}

// gateSink blocks inside Log until released and reports when a call
// has started.
type gateSink struct {
	*sinktest.Recorder
	entered chan string
	gate    chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		Recorder: sinktest.New(sinktest.WithName("gate")),
		entered:  make(chan string, 100),
		gate:     make(chan struct{}),
	}
}

func (g *gateSink) Log(m *core.Message) error {
	g.entered <- m.Text()
	<-g.gate
	return g.Recorder.Log(m)
}

func (g *gateSink) release() {
	close(g.gate)
}

func waitEntered(t *testing.T, g *gateSink, text string) {
	t.Helper()
	select {
	case got := <-g.entered:
		require.Equal(t, text, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("sink never received %q", text)
	}
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p := New(cfg)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestPipeline_SyncDeliveredBeforeReturn(t *testing.T) {
	p := newTestPipeline(t, Config{})
	r := sinktest.New()
	p.AddSink(r)

	p.Log(false, msg(core.FlagError, "boom"))
	assert.Equal(t, []string{"boom"}, r.Texts())
}

func TestPipeline_AsyncDelivered(t *testing.T) {
	p := newTestPipeline(t, Config{})
	r := sinktest.New()
	p.AddSink(r)

	p.Log(true, msg(core.FlagInfo, "hello"))
	require.True(t, r.WaitFor(1, 2*time.Second))
	assert.Equal(t, []string{"hello"}, r.Texts())
}

func TestPipeline_NilMessageIgnored(t *testing.T) {
	p := newTestPipeline(t, Config{})
	r := sinktest.New()
	p.AddSink(r)

	p.Log(false, nil)
	require.NoError(t, p.Flush(context.Background()))
	assert.Zero(t, r.Len())
}

func TestPipeline_MixedModesKeepOrder(t *testing.T) {
	p := newTestPipeline(t, Config{})
	r := sinktest.New()
	p.AddSink(r)

	p.Log(true, msg(core.FlagInfo, "a"))
	p.Log(false, msg(core.FlagError, "b"))
	p.Log(true, msg(core.FlagDebug, "c"))
	p.Log(false, msg(core.FlagError, "d"))

	assert.Equal(t, []string{"a", "b", "c", "d"}, r.Texts())
}

func TestPipeline_PerGoroutineOrder(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 16})
	r := sinktest.New()
	p.AddSink(r)

	const goroutines, perGoroutine = 8, 200
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				p.Log(i%10 != 0, msg(core.FlagInfo, fmt.Sprintf("%d:%d", g, i)))
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, p.Flush(context.Background()))

	texts := r.Texts()
	require.Len(t, texts, goroutines*perGoroutine)
	last := make(map[string]int)
	for _, text := range texts {
		g, seq, _ := strings.Cut(text, ":")
		n, err := strconv.Atoi(seq)
		require.NoError(t, err)
		if prev, ok := last[g]; ok {
			require.Greater(t, n, prev, "goroutine %s out of order", g)
		}
		last[g] = n
	}
}

func TestPipeline_DropNewest(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 3, Overflow: DropNewest})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")
	p.Log(true, msg(core.FlagInfo, "m1"))
	p.Log(true, msg(core.FlagInfo, "m2"))
	p.Log(true, msg(core.FlagInfo, "m3"))
	p.Log(true, msg(core.FlagDebug, "m4"))

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Dropped[core.FlagInfo])
	assert.Equal(t, uint64(1), stats.Dropped[core.FlagDebug])
	assert.Equal(t, 2, stats.Queued)

	g.release()
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0", "m1", "m2"}, g.Texts())
}

func TestPipeline_DropOldest(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 3, Overflow: DropOldest})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")
	p.Log(true, msg(core.FlagInfo, "m1"))
	p.Log(true, msg(core.FlagWarning, "m2"))
	p.Log(true, msg(core.FlagInfo, "m3"))

	assert.Equal(t, uint64(1), p.Stats().Dropped[core.FlagInfo])

	g.release()
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0", "m2", "m3"}, g.Texts())
}

func TestPipeline_DropOldestSkipsSyncMessages(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 3, Overflow: DropOldest})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	syncDone := make(chan struct{})
	go func() {
		p.Log(false, msg(core.FlagError, "sync"))
		close(syncDone)
	}()
	require.Eventually(t, func() bool { return p.Stats().Queued == 1 }, 2*time.Second, time.Millisecond)

	p.Log(true, msg(core.FlagInfo, "m1"))
	p.Log(true, msg(core.FlagInfo, "m2"))

	g.release()
	<-syncDone
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0", "sync", "m2"}, g.Texts())
	assert.Equal(t, uint64(0), p.Stats().Dropped[core.FlagError])
}

func TestPipeline_DropOldestNeverBlocks(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 1, Overflow: DropOldest})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	returned := make(chan struct{})
	go func() {
		p.Log(true, msg(core.FlagInfo, "m1"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Log blocked with only the in-flight message holding the queue")
	}

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Dropped[core.FlagInfo])
	assert.Zero(t, stats.BlockedTotal)

	g.release()
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0"}, g.Texts())
}

func TestPipeline_DropOldestQueueFilledBeforeWorkerRuns(t *testing.T) {
	prev := runtime.GOMAXPROCS(1)
	t.Cleanup(func() { runtime.GOMAXPROCS(prev) })

	for run := 0; run < 20; run++ {
		p := newTestPipeline(t, Config{QueueSize: 3, Overflow: DropOldest})
		g := newGateSink()
		p.AddSink(g)

		returned := make(chan struct{})
		go func() {
			for i := 0; i < 4; i++ {
				p.Log(true, msg(core.FlagInfo, fmt.Sprintf("m%d", i)))
			}
			close(returned)
		}()
		select {
		case <-returned:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d: Log blocked on a full DropOldest queue", run)
		}
		assert.Equal(t, uint64(1), p.Stats().TotalDropped())

		g.release()
		require.NoError(t, p.Flush(context.Background()))
		assert.Len(t, g.Texts(), 3)
	}
}

func TestPipeline_BlockTimeout(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 1, BlockTimeout: 20 * time.Millisecond})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	start := time.Now()
	p.Log(true, msg(core.FlagInfo, "m1"))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.BlockedTotal)
	assert.Equal(t, uint64(1), stats.Dropped[core.FlagInfo])

	g.release()
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0"}, g.Texts())
}

func TestPipeline_BlockWaitsForRoom(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 1})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	queued := make(chan struct{})
	go func() {
		p.Log(true, msg(core.FlagInfo, "m1"))
		close(queued)
	}()

	select {
	case <-queued:
		t.Fatal("Log returned while the queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	g.release()
	<-queued
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"m0", "m1"}, g.Texts())
	assert.Zero(t, p.Stats().TotalDropped())
}

func TestPipeline_FlagPolicy(t *testing.T) {
	p := newTestPipeline(t, Config{
		QueueSize:  1,
		Overflow:   Block,
		FlagPolicy: map[core.Flag]OverflowPolicy{core.FlagVerbose: DropNewest},
	})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	p.Log(true, msg(core.FlagVerbose, "chatter"))
	assert.Equal(t, uint64(1), p.Stats().Dropped[core.FlagVerbose])
	assert.Zero(t, p.Stats().BlockedTotal)

	g.release()
}

func TestPipeline_SyncNeverDropped(t *testing.T) {
	p := newTestPipeline(t, Config{QueueSize: 1, Overflow: DropNewest})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	done := make(chan struct{})
	go func() {
		p.Log(false, msg(core.FlagError, "sync"))
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	g.release()
	<-done

	assert.Equal(t, []string{"m0", "sync"}, g.Texts())
	assert.Zero(t, p.Stats().TotalDropped())
}

func TestPipeline_Flush(t *testing.T) {
	p := newTestPipeline(t, Config{})
	r := sinktest.New()
	p.AddSink(r)

	for i := 0; i < 100; i++ {
		p.Log(true, msg(core.FlagDebug, strconv.Itoa(i)))
	}
	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, 100, r.Len())
	assert.Equal(t, 1, r.Flushes())
}

func TestPipeline_FlushContextCanceled(t *testing.T) {
	p := newTestPipeline(t, Config{})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)
	g.release()
}

type failingFlusher struct {
	*sinktest.Recorder
}

func (f *failingFlusher) Flush() error {
	return errors.New("flush failed")
}

func TestPipeline_FlushError(t *testing.T) {
	p := newTestPipeline(t, Config{})
	p.AddSink(&failingFlusher{Recorder: sinktest.New()})

	err := p.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestPipeline_CloseDrains(t *testing.T) {
	p := New(Config{})
	r := sinktest.New()
	p.AddSink(r)

	for i := 0; i < 50; i++ {
		p.Log(true, msg(core.FlagInfo, strconv.Itoa(i)))
	}
	require.NoError(t, p.Close())

	assert.Equal(t, 50, r.Len())
	assert.True(t, r.Closed())
	assert.GreaterOrEqual(t, r.Flushes(), 1)

	select {
	case <-p.Done():
	default:
		t.Error("worker still running after Close")
	}
}

func TestPipeline_AfterClose(t *testing.T) {
	p := New(Config{})
	r := sinktest.New()
	p.AddSink(r)
	require.NoError(t, p.Close())

	p.Log(true, msg(core.FlagInfo, "late"))
	p.Log(false, msg(core.FlagError, "late sync"))

	assert.Zero(t, r.Len())
	assert.Equal(t, uint64(1), p.Stats().Dropped[core.FlagInfo])
	assert.Equal(t, uint64(1), p.Stats().Dropped[core.FlagError])
	assert.ErrorIs(t, p.Flush(context.Background()), ErrClosed)
	assert.NoError(t, p.Close())
}

func TestPipeline_CloseDrainTimeout(t *testing.T) {
	p := New(Config{DrainTimeout: 20 * time.Millisecond})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")
	p.Log(true, msg(core.FlagInfo, "m1"))

	syncDone := make(chan struct{})
	go func() {
		p.Log(false, msg(core.FlagError, "waiting"))
		close(syncDone)
	}()
	require.Eventually(t, func() bool { return p.Stats().Queued == 2 }, 2*time.Second, time.Millisecond)

	closed := make(chan error)
	go func() { closed <- p.Close() }()

	time.Sleep(50 * time.Millisecond)
	g.release()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	<-syncDone

	assert.Equal(t, []string{"m0"}, g.Texts())
	assert.Equal(t, uint64(2), p.Stats().TotalDropped())
}

func TestPipeline_CloseUnblocksProducers(t *testing.T) {
	p := New(Config{QueueSize: 1})
	g := newGateSink()
	p.AddSink(g)

	p.Log(true, msg(core.FlagInfo, "m0"))
	waitEntered(t, g, "m0")

	blocked := make(chan struct{})
	go func() {
		p.Log(true, msg(core.FlagInfo, "m1"))
		close(blocked)
	}()
	require.Eventually(t, func() bool { return p.Stats().BlockedTotal == 1 }, 2*time.Second, time.Millisecond)

	closed := make(chan error)
	go func() { closed <- p.Close() }()

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked producer not released by Close")
	}
	g.release()
	require.NoError(t, <-closed)
}

func TestPipeline_ConcurrentLogAndClose(t *testing.T) {
	p := New(Config{QueueSize: 4})
	r := sinktest.New()
	p.AddSink(r)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				p.Log(g%2 == 0, msg(core.FlagInfo, "x"))
			}
		}(g)
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, p.Close())
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, uint64(800), stats.ProcessedTotal+stats.TotalDropped())
	assert.Equal(t, int(stats.ProcessedTotal), r.Len())
}

func TestPipeline_CloseReportsSinkCloseErrors(t *testing.T) {
	p := New(Config{})
	p.AddSink(&closeFails{})
	err := p.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot close")
}

type closeFails struct{}

func (closeFails) Log(*core.Message) error { return nil }
func (closeFails) Close() error            { return errors.New("cannot close") }

func TestPipeline_SinkRetries(t *testing.T) {
	p := newTestPipeline(t, Config{SinkRetries: 2})
	r := sinktest.New()
	r.FailNext(2, errors.New("transient"))
	p.AddSink(r)

	p.Log(false, msg(core.FlagWarning, "retried"))
	assert.Equal(t, []string{"retried"}, r.Texts())
	assert.Zero(t, p.Stats().SinkErrors)
}

func TestPipeline_SinkFailureIsolated(t *testing.T) {
	observed, logs := observer.New(zapcore.WarnLevel)
	var handled []string
	p := newTestPipeline(t, Config{
		Diagnostics: zap.New(observed),
		ErrorHandler: func(s sink.Sink, m *core.Message, err error) {
			handled = append(handled, m.Text()+": "+err.Error())
		},
	})

	broken := sinktest.New(sinktest.WithName("broken"))
	broken.FailNext(-1, errors.New("disk full"))
	healthy := sinktest.New()
	p.AddSink(broken)
	p.AddSink(healthy)

	p.Log(false, msg(core.FlagError, "important"))

	assert.Equal(t, []string{"important"}, healthy.Texts())
	assert.Equal(t, uint64(1), p.Stats().SinkErrors)
	assert.Equal(t, []string{"important: disk full"}, handled)

	entries := logs.FilterMessage("sink write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["sink"])
}

func TestPipeline_SinkPanicContained(t *testing.T) {
	p := newTestPipeline(t, Config{})
	p.AddSink(sink.Func(func(*core.Message) error {
		panic("sink exploded")
	}))
	r := sinktest.New()
	p.AddSink(r)

	p.Log(false, msg(core.FlagError, "first"))
	p.Log(false, msg(core.FlagError, "second"))

	assert.Equal(t, []string{"first", "second"}, r.Texts())
	assert.Equal(t, uint64(2), p.Stats().SinkErrors)
}

func TestPipeline_SinkFilters(t *testing.T) {
	p := newTestPipeline(t, Config{})
	all := sinktest.New()
	warnings := sinktest.New()
	ctx7 := sinktest.New()
	p.AddSink(all)
	p.AddSink(warnings, WithLevel(core.LevelWarning))
	p.AddSink(ctx7, WithFilter(sink.Filter{Contexts: []int{7}}))

	p.Log(false, msg(core.FlagInfo, "info"))
	p.Log(false, msg(core.FlagError, "error"))
	p.Log(false, core.NewMessage(core.MessageParams{Text: "ctx", Flag: core.FlagDebug, Context: 7}))

	assert.Equal(t, []string{"info", "error", "ctx"}, all.Texts())
	assert.Equal(t, []string{"error"}, warnings.Texts())
	assert.Equal(t, []string{"ctx"}, ctx7.Texts())
}

func TestPipeline_SinkRegistry(t *testing.T) {
	p := newTestPipeline(t, Config{})
	a := sinktest.New(sinktest.WithName("a"))
	b := sinktest.New(sinktest.WithName("b"))
	idA := p.AddSink(a)
	idB := p.AddSink(b, WithName("renamed"))
	require.NotEqual(t, idA, idB)

	infos := p.Sinks()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "renamed", infos[1].Name)

	assert.True(t, p.RemoveSink(idA))
	assert.False(t, p.RemoveSink(idA))

	p.Log(false, msg(core.FlagInfo, "only b"))
	assert.Zero(t, a.Len())
	assert.Equal(t, 1, b.Len())

	p.RemoveAllSinks()
	assert.Empty(t, p.Sinks())
	p.Log(false, msg(core.FlagInfo, "nobody"))
	assert.Equal(t, 1, b.Len())
}

func TestPipeline_Stats(t *testing.T) {
	p := newTestPipeline(t, Config{})
	p.AddSink(sinktest.New())

	for i := 0; i < 10; i++ {
		p.Log(false, msg(core.FlagInfo, "x"))
	}
	stats := p.Stats()
	assert.Equal(t, uint64(10), stats.ProcessedTotal)
	assert.Zero(t, stats.TotalDropped())
	assert.True(t, strings.HasPrefix(p.ID(), "pipeline-"))
}

func TestDefault(t *testing.T) {
	p := New(Config{})
	prev := SetDefault(p)
	t.Cleanup(func() {
		SetDefault(prev)
		_ = p.Close()
	})

	assert.Same(t, p, Default())
}

func BenchmarkPipeline_Async(b *testing.B) {
	p := New(Config{QueueSize: 4096})
	p.AddSink(sink.Func(func(*core.Message) error { return nil }))
	defer p.Close()
	m := msg(core.FlagInfo, "bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Log(true, m)
	}
}

func BenchmarkPipeline_Sync(b *testing.B) {
	p := New(Config{})
	p.AddSink(sink.Func(func(*core.Message) error { return nil }))
	defer p.Close()
	m := msg(core.FlagError, "bench")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Log(false, m)
	}
}
