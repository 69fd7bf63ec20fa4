package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/S1D007/Chat-App-Backend/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	appended []Job
	failures int // fail this many calls before succeeding
}

func (f *fakeStore) Append(chatID, userID uint, body string, at time.Time) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("store unavailable")
	}
	f.appended = append(f.appended, Job{ChatID: chatID, UserID: userID, Body: body, At: at})
	return &models.Message{ChatID: chatID, UserID: userID, Body: body, CreatedAt: at}, nil
}

func (f *fakeStore) jobs() []Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Job, len(f.appended))
	copy(out, f.appended)
	return out
}

func TestPersister_PreservesOrder(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 16)
	p.Start()

	for i := 1; i <= 5; i++ {
		p.Enqueue(Job{ChatID: 1, UserID: 2, Body: string(rune('a' + i - 1)), At: time.Now()})
	}
	p.Stop() // drains the queue

	got := store.jobs()
	if len(got) != 5 {
		t.Fatalf("persisted %d jobs, want 5", len(got))
	}
	for i, job := range got {
		want := string(rune('a' + i))
		if job.Body != want {
			t.Errorf("job %d body = %q, want %q", i, job.Body, want)
		}
	}
}

func TestPersister_RetriesTransientFailure(t *testing.T) {
	store := &fakeStore{failures: 2}
	p := NewPersister(store, 4)
	p.Start()

	p.Enqueue(Job{ChatID: 1, UserID: 2, Body: "hi", At: time.Now()})
	p.Stop()

	got := store.jobs()
	if len(got) != 1 {
		t.Fatalf("persisted %d jobs after retries, want 1", len(got))
	}
	if got[0].Body != "hi" {
		t.Errorf("persisted body = %q, want %q", got[0].Body, "hi")
	}
}

func TestPersister_SwallowsPermanentFailure(t *testing.T) {
	store := &fakeStore{failures: 100}
	p := NewPersister(store, 4)
	p.Start()

	p.Enqueue(Job{ChatID: 42, UserID: 2, Body: "doomed", At: time.Now()})
	p.Stop() // must not panic or block

	if got := store.jobs(); len(got) != 0 {
		t.Errorf("persisted %d jobs, want 0", len(got))
	}
}

func TestPersister_EnqueueAfterStop(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 4)
	p.Start()
	p.Stop()

	// A connection can outlive shutdown; its late jobs must be dropped,
	// not sent into the closed queue.
	p.Enqueue(Job{ChatID: 1, UserID: 2, Body: "late", At: time.Now()})

	if got := store.jobs(); len(got) != 0 {
		t.Errorf("persisted %d jobs after Stop, want 0", len(got))
	}

	p.Stop() // repeated Stop is safe
}

func TestPersister_EnqueueNeverBlocksWhenFull(t *testing.T) {
	store := &fakeStore{}
	p := NewPersister(store, 1)
	// Worker not started: the buffer fills and extra jobs must be dropped,
	// not block the broadcast path.
	p.Enqueue(Job{ChatID: 1, UserID: 1, Body: "first"})

	done := make(chan struct{})
	go func() {
		p.Enqueue(Job{ChatID: 1, UserID: 1, Body: "overflow"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	p.Start()
	p.Stop()
	got := store.jobs()
	if len(got) != 1 || got[0].Body != "first" {
		t.Errorf("persisted jobs = %+v, want only the first", got)
	}
}
