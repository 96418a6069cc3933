package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"loom/internal/config"
	"loom/internal/events"
	"loom/internal/metrics"
	"loom/internal/operations"
	"loom/internal/orchestrator"
	"loom/internal/queue"
	"loom/internal/registry"
	"loom/internal/services"
	"loom/internal/testsupport"
)

type harness struct {
	cfg   *config.Config
	store *queue.Store
	ops   *operations.Registry
	bus   *events.Bus
	coord *orchestrator.Coordinator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()

	opts = append([]testsupport.ConfigOption{
		testsupport.WithRetry(config.Retry{MaxAttempts: 2, BaseBackoffMS: 1, MaxBackoffMS: 2}),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)

	reg, err := registry.New(cfg, metrics.NewCollector(), nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	ops := operations.NewRegistry(cfg)
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	coord, err := orchestrator.New(cfg, store, reg, ops, bus, nil)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	return &harness{cfg: cfg, store: store, ops: ops, bus: bus, coord: coord}
}

func (h *harness) stubAll(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		operations.OpYouTubeMetadata,
		operations.OpWhisperTranscribe,
		operations.OpGeminiAnalyze,
		operations.OpOpenAIAnalyze,
		operations.OpArtifactSave,
	} {
		op := name
		h.ops.Register(op, func(ctx context.Context, jc *operations.JobContext) (string, error) {
			return fmt.Sprintf(`{"op":%q}`, op), nil
		})
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.coord.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.coord.Stop)
}

func (h *harness) waitTerminal(t *testing.T, jobID int64) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := h.store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && queue.IsTerminal(job.Status) {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d never reached a terminal status", jobID)
	return nil
}

func TestJobCompletesThroughFullPipeline(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)

	eventsCh, err := h.bus.Subscribe("test", 64)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h.start(t)
	job := testsupport.NewJob(t, h.store, "happy-path")
	final := h.waitTerminal(t, job.ID)

	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.FinishedAt == nil || final.StartedAt == nil {
		t.Fatalf("expected start/finish timestamps: %#v", final)
	}

	results, err := h.store.StageResultsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("StageResultsForJob: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 stage results, got %d", len(results))
	}
	for _, res := range results {
		if res.Status != queue.StageCompleted {
			t.Fatalf("stage %s not completed: %#v", res.Stage, res)
		}
		if res.Attempts != 1 {
			t.Fatalf("stage %s expected 1 attempt, got %d", res.Stage, res.Attempts)
		}
	}

	sawStart, sawFinish := false, false
	timeout := time.After(5 * time.Second)
	for !(sawStart && sawFinish) {
		select {
		case evt := <-eventsCh:
			switch evt.Type {
			case events.TypeJobStarted:
				sawStart = true
			case events.TypeJobFinished:
				sawFinish = true
				if evt.JobStatus != queue.StatusCompleted {
					t.Fatalf("finish event carried %s", evt.JobStatus)
				}
			}
		case <-timeout:
			t.Fatal("lifecycle events not observed")
		}
	}
}

func TestOptionalStageFailureYieldsPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)
	h.ops.Register(operations.OpGeminiAnalyze, func(ctx context.Context, jc *operations.JobContext) (string, error) {
		return "", fmt.Errorf("%w: provider exploded", services.ErrTransient)
	})

	h.start(t)
	job := testsupport.NewJob(t, h.store, "partial")
	final := h.waitTerminal(t, job.ID)

	if final.Status != queue.StatusPartialFailure {
		t.Fatalf("expected partial_failure, got %s (%s)", final.Status, final.ErrorMessage)
	}

	results, _ := h.store.StageResultsForJob(context.Background(), job.ID)
	byStage := make(map[string]*queue.StageResult, len(results))
	for _, res := range results {
		byStage[res.Stage] = res
	}
	if byStage["analyze_gemini"].Status != queue.StageFailed {
		t.Fatalf("expected gemini failure, got %#v", byStage["analyze_gemini"])
	}
	if byStage["analyze_gemini"].Attempts != 2 {
		t.Fatalf("expected retry exhaustion (2 attempts), got %d", byStage["analyze_gemini"].Attempts)
	}
	if byStage["analyze_openai"].Status != queue.StageCompleted {
		t.Fatalf("other provider should complete, got %#v", byStage["analyze_openai"])
	}
	// The artifact still gets stored.
	if byStage["store"].Status != queue.StageCompleted {
		t.Fatalf("store stage should complete, got %#v", byStage["store"])
	}
}

func TestRequiredStageFailureFailsJobAndSkipsRest(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)
	h.ops.Register(operations.OpWhisperTranscribe, func(ctx context.Context, jc *operations.JobContext) (string, error) {
		return "", fmt.Errorf("%w: audio track unreadable", services.ErrValidation)
	})

	h.start(t)
	job := testsupport.NewJob(t, h.store, "hard-fail")
	final := h.waitTerminal(t, job.ID)

	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected failure message on job")
	}

	results, _ := h.store.StageResultsForJob(context.Background(), job.ID)
	byStage := make(map[string]*queue.StageResult, len(results))
	for _, res := range results {
		byStage[res.Stage] = res
	}
	if byStage["transcribe"].Status != queue.StageFailed {
		t.Fatalf("expected transcribe failure, got %#v", byStage["transcribe"])
	}
	// Permanent errors do not retry.
	if byStage["transcribe"].Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", byStage["transcribe"].Attempts)
	}
	for _, stage := range []string{"analyze_gemini", "analyze_openai", "store"} {
		if byStage[stage].Status != queue.StageSkipped {
			t.Fatalf("expected %s skipped, got %#v", stage, byStage[stage])
		}
	}
}

func TestAnalyzeGroupRunsConcurrently(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)

	// Each provider waits for the other; only concurrent execution finishes.
	geminiRunning := make(chan struct{})
	openaiRunning := make(chan struct{})
	h.ops.Register(operations.OpGeminiAnalyze, func(ctx context.Context, jc *operations.JobContext) (string, error) {
		close(geminiRunning)
		select {
		case <-openaiRunning:
			return `{"provider":"gemini"}`, nil
		case <-time.After(5 * time.Second):
			return "", fmt.Errorf("%w: peer stage never started", services.ErrValidation)
		}
	})
	h.ops.Register(operations.OpOpenAIAnalyze, func(ctx context.Context, jc *operations.JobContext) (string, error) {
		close(openaiRunning)
		select {
		case <-geminiRunning:
			return `{"provider":"openai"}`, nil
		case <-time.After(5 * time.Second):
			return "", fmt.Errorf("%w: peer stage never started", services.ErrValidation)
		}
	})

	h.start(t)
	job := testsupport.NewJob(t, h.store, "concurrent")
	final := h.waitTerminal(t, job.ID)

	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
}

func TestCancelRunningJob(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)

	transcribing := make(chan struct{})
	h.ops.Register(operations.OpWhisperTranscribe, func(ctx context.Context, jc *operations.JobContext) (string, error) {
		close(transcribing)
		<-ctx.Done()
		return "", ctx.Err()
	})

	h.start(t)
	job := testsupport.NewJob(t, h.store, "cancel-me")

	select {
	case <-transcribing:
	case <-time.After(10 * time.Second):
		t.Fatal("transcribe stage never started")
	}

	ok, err := h.coord.CancelJob(context.Background(), job.ID, "operator request")
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if !ok {
		t.Fatal("expected cancellation to take effect")
	}

	final := h.waitTerminal(t, job.ID)
	if final.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}
	if final.ErrorMessage != "operator request" {
		t.Fatalf("expected cancel reason, got %q", final.ErrorMessage)
	}
}

func TestCancelPendingJob(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)
	// Coordinator not started: the job stays pending.

	job := testsupport.NewJob(t, h.store, "never-ran")
	ok, err := h.coord.CancelJob(context.Background(), job.ID, "")
	if err != nil {
		t.Fatalf("CancelJob: %v", err)
	}
	if !ok {
		t.Fatal("expected pending cancellation to succeed")
	}

	got, _ := h.store.GetByID(context.Background(), job.ID)
	if got.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestNewRejectsUnknownOperation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPipeline(config.StageSpec{
		Name:       "mystery",
		Dependency: config.DepYouTube,
		Operation:  "mystery.op",
		Required:   true,
	}))
	store := testsupport.MustOpenStore(t, cfg)
	reg, err := registry.New(cfg, metrics.NewCollector(), nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	_, err = orchestrator.New(cfg, store, reg, operations.NewRegistry(cfg), events.NewBus(), nil)
	if err == nil {
		t.Fatal("expected pipeline build failure")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStatusSummary(t *testing.T) {
	h := newHarness(t)
	h.stubAll(t)
	h.start(t)

	job := testsupport.NewJob(t, h.store, "status")
	h.waitTerminal(t, job.ID)

	summary := h.coord.Status(context.Background())
	if !summary.Running {
		t.Fatal("expected running coordinator")
	}
	if summary.JobStats[queue.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %#v", summary.JobStats)
	}
	if len(summary.Dependencies) == 0 {
		t.Fatal("expected dependency snapshot")
	}
}
