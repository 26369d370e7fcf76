package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamops/internal/domain"
)

var ErrQueueFull = errors.New("notification queue is full")

// Sender delivers one rendered notification to the outside channel.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// CommandSender shells out to a configured argv with the message
// appended as the last argument.
type CommandSender struct {
	Argv []string
}

func (c CommandSender) Send(ctx context.Context, message string) error {
	if len(c.Argv) == 0 {
		return errors.New("notify command not configured")
	}
	args := append(append([]string{}, c.Argv[1:]...), message)
	cmd := exec.CommandContext(ctx, c.Argv[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify command failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// WriterSender writes messages to an io.Writer, one per line.
type WriterSender struct {
	W io.Writer
}

func (w WriterSender) Send(_ context.Context, message string) error {
	_, err := io.WriteString(w.W, message+"\n")
	return err
}

// Dispatcher fans rendered notifications out to a Sender from a
// buffered queue. Publish never blocks: when the queue is full the
// notification is dropped and the drop is logged.
type Dispatcher struct {
	sender Sender
	queue  chan string
	logger *log.Logger
}

func NewDispatcher(sender Sender, buffer int, logger *log.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		sender: sender,
		queue:  make(chan string, buffer),
		logger: logger,
	}
}

func (d *Dispatcher) Publish(message string) error {
	select {
	case d.queue <- message:
		return nil
	default:
		d.logger.Printf("notify: queue full, dropping notification")
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is done. Send failures are logged and
// never propagate.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-d.queue:
			if err := d.sender.Send(ctx, message); err != nil {
				d.logger.Printf("notify: send failed: %v", err)
			}
		}
	}
}

// Drain delivers everything currently queued, synchronously. Meant for
// one-shot processes that exit right after their operation.
func (d *Dispatcher) Drain(ctx context.Context) {
	for {
		select {
		case message := <-d.queue:
			if err := d.sender.Send(ctx, message); err != nil {
				d.logger.Printf("notify: send failed: %v", err)
			}
		default:
			return
		}
	}
}

// NotificationStore persists rendered payloads before delivery.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
}

// Emitter is the single path every rendered notification takes: persist
// the write-once row, then hand the text to the dispatcher. Both steps
// are best effort and failures never surface to the caller.
type Emitter struct {
	store      NotificationStore
	dispatcher *Dispatcher
	logger     *log.Logger
}

func NewEmitter(store NotificationStore, dispatcher *Dispatcher, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{store: store, dispatcher: dispatcher, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, conversationID, content string) {
	if e == nil {
		return
	}
	if e.store != nil {
		n := domain.Notification{
			ID:             "NOTIF-" + uuid.NewString()[:8],
			ConversationID: conversationID,
			Content:        content,
			CreatedAt:      time.Now().UTC(),
		}
		if err := e.store.CreateNotification(ctx, n); err != nil {
			e.logger.Printf("notify: persist notification: %v", err)
		}
	}
	if e.dispatcher != nil {
		if err := e.dispatcher.Publish(content); err != nil {
			e.logger.Printf("notify: publish: %v", err)
		}
	}
}
