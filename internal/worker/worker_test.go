package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/job"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	IngestedCount  int32
	OnProcess      func(j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, hist []string) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(j)
	}
	j.JobPayload.Solution = "fixed"
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.IngestedCount, 1)
	return j
}

type MockJobStore struct {
	mu   sync.Mutex
	jobs map[string][]jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := m.jobs[jobId]
	if len(history) == 0 {
		return jobModel.Job{}, false
	}
	return history[len(history)-1], true
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = make(map[string][]jobModel.Job)
	}
	m.jobs[j.Id] = append(m.jobs[j.Id], j)
	return nil
}

func (m *MockJobStore) statuses(id string) []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.JobStatus
	for _, j := range m.jobs[id] {
		out = append(out, j.Status)
	}
	return out
}

// MockMessageStore handles chat history
type MockMessageStore struct {
	mu    sync.Mutex
	saved []jobModel.JobPayload
}

func (m *MockMessageStore) ValidateChatId(ctx context.Context, id string) bool { return true }
func (m *MockMessageStore) InitNewChat(ctx context.Context, id string) error  { return nil }
func (m *MockMessageStore) GetMessageHistory(ctx context.Context, id string) ([]string, error) {
	return []string{"Question: q\nAnswer: a"}, nil
}
func (m *MockMessageStore) TrySaveChat(ctx context.Context, id string, p jobModel.JobPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, p)
	return nil
}

func newTestPool(cfg PoolConfig) (*Pool, *job.Service, *MockJobStore, *MockMessageStore, *MockRagService) {
	jobStore := &MockJobStore{}
	messages := &MockMessageStore{}
	jobSvc := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
		MessageStore:      messages,
	})
	mockRag := &MockRagService{}
	return NewPool(jobSvc, mockRag, cfg), jobSvc, jobStore, messages, mockRag
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkerPool_Flow(t *testing.T) {
	pool, jobSvc, jobStore, messages, mockRag := newTestPool(PoolConfig{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: time.Minute})
	pool.Start()

	t.Run("Starts with minimum workers", func(t *testing.T) {
		if got := pool.WorkerCount(); got != 1 {
			t.Errorf("Expected 1 worker, got %d", got)
		}
	})

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return pool.WorkerCount() == 2 })
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1", ChatId: "chat-1", JobType: jobModel.JobTypeAnalyze}
		jobSvc.JobChannel <- testJob

		waitFor(t, func() bool {
			s := jobStore.statuses("test-1")
			return len(s) == 2 && s[1] == jobModel.JobStatusComplete
		})
		if got := jobStore.statuses("test-1"); got[0] != jobModel.JobStatusRunning {
			t.Errorf("first saved status = %s, want RUNNING", got[0])
		}
		if atomic.LoadInt32(&mockRag.ProcessedCount) != 1 {
			t.Error("Expected 1 job processed")
		}
		messages.mu.Lock()
		defer messages.mu.Unlock()
		if len(messages.saved) != 1 || messages.saved[0].Solution != "fixed" {
			t.Errorf("chat history not saved: %+v", messages.saved)
		}
	})

	t.Run("Ingest jobs go to ingestion", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "ingest-1", JobType: jobModel.JobTypeIngest}
		waitFor(t, func() bool { return atomic.LoadInt32(&mockRag.IngestedCount) == 1 })
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := pool.Stop(ctx); err != nil {
			t.Fatalf("Workers did not stop: %v", err)
		}
		if got := pool.WorkerCount(); got != 0 {
			t.Errorf("worker count after stop = %d", got)
		}
	})
}

func TestWorkerPool_FailedJobIsRecordedAsError(t *testing.T) {
	pool, jobSvc, jobStore, messages, mockRag := newTestPool(PoolConfig{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Minute})
	mockRag.OnProcess = func(j jobModel.Job) jobModel.Job {
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: 502, Message: "Embedding provider unavailable", Retry: true}
		return j
	}
	pool.Start()
	defer pool.Stop(context.Background())

	jobSvc.JobChannel <- jobModel.Job{Id: "bad", ChatId: "chat-1"}

	waitFor(t, func() bool {
		s := jobStore.statuses("bad")
		return len(s) == 2 && s[1] == jobModel.JobStatusError
	})
	stored, _ := jobStore.GetJob(context.Background(), "bad")
	if stored.EndTime.IsZero() || stored.Error.Code != 502 {
		t.Errorf("stored failed job = %+v", stored)
	}
	messages.mu.Lock()
	defer messages.mu.Unlock()
	if len(messages.saved) != 0 {
		t.Error("failed answers must not be added to the chat")
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	pool, jobSvc, _, _, _ := newTestPool(PoolConfig{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: 100 * time.Millisecond})
	pool.Start()
	defer pool.Stop(context.Background())

	jobSvc.DispatcherChannel <- true
	jobSvc.DispatcherChannel <- true
	waitFor(t, func() bool { return pool.WorkerCount() == 3 })

	// idle workers retire down to the minimum and no further
	waitFor(t, func() bool { return pool.WorkerCount() == 1 })
	time.Sleep(300 * time.Millisecond)
	if got := pool.WorkerCount(); got != 1 {
		t.Errorf("worker count = %d, want minimum 1", got)
	}
}

func TestWorkerPool_NoWorkersAfterStop(t *testing.T) {
	pool, jobSvc, _, _, _ := newTestPool(PoolConfig{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: time.Minute})
	pool.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if pool.tryCreateWorker() {
		t.Error("worker created after Stop")
	}
	jobSvc.DispatcherChannel <- true
	time.Sleep(20 * time.Millisecond)
	if got := pool.WorkerCount(); got != 0 {
		t.Errorf("worker count after stop = %d", got)
	}
	if err := pool.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
