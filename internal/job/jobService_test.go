package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/data/store"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
)

func newService(buffer int) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, buffer),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
		MessageStore:      store.InitMessageStore(),
	})
}

func TestEnqueueStoresQueuedJob(t *testing.T) {
	s := newService(1)
	ctx := context.Background()
	j := NewAnalyzeJob("trace-1", "chat-1", "nil pointer dereference", false)

	if err := s.Enqueue(ctx, j); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	stored, found := s.GetJob(ctx, j.Id)
	if !found || stored.Status != jobModel.JobStatusQueued {
		t.Errorf("stored job = %+v, found %v", stored, found)
	}
	got := <-s.JobChannel
	if got.Id != j.Id || got.JobPayload.ErrorMessage != "nil pointer dereference" {
		t.Errorf("queued job = %+v", got)
	}
}

func TestEnqueueIngestSignalsDispatcher(t *testing.T) {
	s := newService(1)
	j := NewIngestJob("trace", commonModels.Document{Id: "doc-1", Name: "a.pdf"}, "/tmp/a.pdf")

	if err := s.Enqueue(context.Background(), j); err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.DispatcherChannel:
	default:
		t.Error("ingest job should signal the dispatcher")
	}
	if j.JobPayload.DocumentId != "doc-1" || j.JobType != jobModel.JobTypeIngest {
		t.Errorf("ingest job = %+v", j)
	}
}

func TestEnqueueEveryNthRequestSignalsDispatcher(t *testing.T) {
	s := newService(int(config.RequestsPerNewWorkerCount))
	ctx := context.Background()
	for i := range config.RequestsPerNewWorkerCount {
		if err := s.Enqueue(ctx, NewAnalyzeJob("t", "", "e", false)); err != nil {
			t.Fatal(err)
		}
		signalled := len(s.DispatcherChannel) == 1
		if want := i == config.RequestsPerNewWorkerCount-1; signalled != want {
			t.Fatalf("request %d: signalled=%v want %v", i+1, signalled, want)
		}
	}
}

func TestEnqueueFullQueueFailsImmediately(t *testing.T) {
	s := newService(1)
	ctx := context.Background()
	if err := s.Enqueue(ctx, NewAnalyzeJob("t", "", "first", false)); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}

	j := NewAnalyzeJob("t", "", "second", false)
	done := make(chan error, 1)
	go func() { done <- s.Enqueue(ctx, j) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("err = %v, want ErrQueueFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
	stored, _ := s.GetJob(ctx, j.Id)
	if stored.Status != jobModel.JobStatusError || !stored.Error.Retry || stored.Error.Code != 503 {
		t.Errorf("stored job = %+v", stored)
	}
	if len(s.JobChannel) != 1 {
		t.Errorf("queue length = %d, want 1", len(s.JobChannel))
	}
}

func TestResolveChat(t *testing.T) {
	s := newService(1)
	ctx := context.Background()

	id, err := s.ResolveChat(ctx, "")
	if err != nil || id == "" {
		t.Fatalf("new chat: %q %v", id, err)
	}
	if again, err := s.ResolveChat(ctx, id); err != nil || again != id {
		t.Errorf("existing chat: %q %v", again, err)
	}
	if _, err := s.ResolveChat(ctx, "made-up"); err != ErrUnknownChat {
		t.Errorf("unknown chat err = %v", err)
	}
}
