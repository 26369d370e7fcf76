package notify

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"teamops/internal/domain"
)

type recordingStore struct {
	mu   sync.Mutex
	rows []domain.Notification
	err  error
}

func (r *recordingStore) CreateNotification(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, n)
	return nil
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(WriterSender{W: &buf}, 1, log.New(&buf, "", 0))

	if err := d.Publish("first"); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := d.Publish("second"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("second publish err=%v want ErrQueueFull", err)
	}
}

func TestDispatcherDelivers(t *testing.T) {
	var mu sync.Mutex
	var out strings.Builder
	sender := senderFunc(func(_ context.Context, msg string) error {
		mu.Lock()
		defer mu.Unlock()
		out.WriteString(msg)
		return nil
	})

	d := NewDispatcher(sender, 4, log.New(&bytes.Buffer{}, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	if err := d.Publish("Task T-1 completed"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		got := out.String()
		mu.Unlock()
		if got == "Task T-1 completed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered=%q want=%q", got, "Task T-1 completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEmitterPersistsThenPublishes(t *testing.T) {
	store := &recordingStore{}
	var buf bytes.Buffer
	d := NewDispatcher(WriterSender{W: &buf}, 4, log.New(&bytes.Buffer{}, "", 0))
	e := NewEmitter(store, d, log.New(&bytes.Buffer{}, "", 0))

	e.Emit(context.Background(), "CONV-AAAA1111", "HELP REQUEST from alice")

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.rows) != 1 {
		t.Fatalf("rows=%d want=1", len(store.rows))
	}
	row := store.rows[0]
	if !strings.HasPrefix(row.ID, "NOTIF-") || len(row.ID) != len("NOTIF-")+8 {
		t.Fatalf("notification id=%q want NOTIF-xxxxxxxx", row.ID)
	}
	if row.ConversationID != "CONV-AAAA1111" || row.Content != "HELP REQUEST from alice" {
		t.Fatalf("row=%+v", row)
	}
}

func TestEmitterSwallowsStoreFailure(t *testing.T) {
	store := &recordingStore{err: errors.New("disk gone")}
	var logBuf bytes.Buffer
	e := NewEmitter(store, nil, log.New(&logBuf, "", 0))

	e.Emit(context.Background(), "", "Task T-1 started")

	if !strings.Contains(logBuf.String(), "persist notification") {
		t.Fatalf("log=%q want persist failure logged", logBuf.String())
	}
}

type senderFunc func(ctx context.Context, message string) error

func (f senderFunc) Send(ctx context.Context, message string) error { return f(ctx, message) }
