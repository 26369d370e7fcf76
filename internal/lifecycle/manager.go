package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"teamops/internal/domain"
)

// Store is the persistence surface the manager drives. Every method
// that mutates takes the operation timestamp so callers control time.
type Store interface {
	CreateTask(ctx context.Context, task domain.Task, now time.Time) (domain.Task, error)
	GetTask(ctx context.Context, taskID string) (domain.Task, error)
	ListTasks(ctx context.Context, status, assignee string) ([]domain.Task, error)
	ListTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskHistoryEntry, error)
	AssignTask(ctx context.Context, taskID, agentID string, now time.Time) (bool, error)
	StartTask(ctx context.Context, taskID, agentID string, now time.Time) (domain.Task, bool, error)
	SendTaskToReview(ctx context.Context, taskID string, now time.Time) (domain.Task, error)
	UpdateTaskProgress(ctx context.Context, taskID string, progress int, notes string, now time.Time) (bool, error)
	CompleteTask(ctx context.Context, taskID string, now time.Time) (domain.Task, bool, error)
	BlockTask(ctx context.Context, taskID, reason string, now time.Time) (domain.Task, bool, error)
	UnblockTask(ctx context.Context, taskID string, now time.Time) (domain.Task, error)
	RecalculateDurations(ctx context.Context) (int64, error)
	CreateAgent(ctx context.Context, agent domain.Agent) error
	GetAgent(ctx context.Context, agentID string) (domain.Agent, error)
	ListAgents(ctx context.Context, status string) ([]domain.Agent, error)
	UpdateAgentHeartbeat(ctx context.Context, agentID string, now time.Time) (bool, error)
}

// Emitter receives one rendered notification per successful operation,
// strictly after the store call returns.
type Emitter interface {
	Emit(ctx context.Context, conversationID, content string)
}

type Manager struct {
	store   Store
	emitter Emitter
	now     func() time.Time
	logger  *log.Logger
}

func New(store Store, emitter Emitter, clock func() time.Time, logger *log.Logger) *Manager {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{store: store, emitter: emitter, now: clock, logger: logger}
}

func (m *Manager) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	created, err := m.store.CreateTask(ctx, task, m.now())
	if err != nil {
		return domain.Task{}, err
	}
	m.emit(ctx, fmt.Sprintf("New task %s: %s (priority %s)", created.ID, created.Title, created.Priority))
	return created, nil
}

// Assign hands the task to an agent. Returns false without error when
// the task does not exist.
func (m *Manager) Assign(ctx context.Context, taskID, agentID string) (bool, error) {
	if _, err := m.store.GetAgent(ctx, agentID); err != nil {
		return false, err
	}
	applied, err := m.store.AssignTask(ctx, taskID, agentID, m.now())
	if err != nil || !applied {
		return applied, err
	}
	m.emit(ctx, fmt.Sprintf("Task %s assigned to %s", taskID, agentID))
	return true, nil
}

// Start moves the task to in_progress. An empty agentID falls back to
// the task's assignee.
func (m *Manager) Start(ctx context.Context, taskID, agentID string) (domain.Task, bool, error) {
	task, applied, err := m.store.StartTask(ctx, taskID, agentID, m.now())
	if err != nil || !applied {
		return task, applied, err
	}
	who := task.AssigneeID
	if who == "" {
		who = "unassigned"
	}
	m.emit(ctx, fmt.Sprintf("Task %s started by %s", taskID, who))
	return task, true, nil
}

func (m *Manager) SendToReview(ctx context.Context, taskID string) (domain.Task, error) {
	task, err := m.store.SendTaskToReview(ctx, taskID, m.now())
	if err != nil {
		return domain.Task{}, err
	}
	m.emit(ctx, fmt.Sprintf("Task %s sent for review", taskID))
	return task, nil
}

func (m *Manager) UpdateProgress(ctx context.Context, taskID string, progress int, notes string) (bool, error) {
	if progress < 0 || progress > 100 {
		return false, fmt.Errorf("progress %d out of range 0-100", progress)
	}
	applied, err := m.store.UpdateTaskProgress(ctx, taskID, progress, notes, m.now())
	if err != nil || !applied {
		return applied, err
	}
	m.emit(ctx, fmt.Sprintf("Task %s progress: %d%%", taskID, progress))
	return true, nil
}

func (m *Manager) Complete(ctx context.Context, taskID string) (domain.Task, bool, error) {
	task, applied, err := m.store.CompleteTask(ctx, taskID, m.now())
	if err != nil || !applied {
		return task, applied, err
	}
	text := fmt.Sprintf("Task %s completed", taskID)
	if task.ActualDurationMinutes != nil {
		text = fmt.Sprintf("Task %s completed in %d minutes", taskID, *task.ActualDurationMinutes)
	}
	m.emit(ctx, text)
	return task, true, nil
}

func (m *Manager) Block(ctx context.Context, taskID, reason string) (domain.Task, bool, error) {
	task, applied, err := m.store.BlockTask(ctx, taskID, reason, m.now())
	if err != nil || !applied {
		return task, applied, err
	}
	m.emit(ctx, fmt.Sprintf("Task %s blocked: %s", taskID, reason))
	return task, true, nil
}

func (m *Manager) Unblock(ctx context.Context, taskID string) (domain.Task, error) {
	task, err := m.store.UnblockTask(ctx, taskID, m.now())
	if err != nil {
		return domain.Task{}, err
	}
	m.emit(ctx, fmt.Sprintf("Task %s resumed", taskID))
	return task, nil
}

func (m *Manager) RecalculateDurations(ctx context.Context) (int64, error) {
	return m.store.RecalculateDurations(ctx)
}

func (m *Manager) AddAgent(ctx context.Context, agent domain.Agent) error {
	if err := m.store.CreateAgent(ctx, agent); err != nil {
		return err
	}
	m.emit(ctx, fmt.Sprintf("Agent %s (%s) joined the team", agent.ID, agent.Role))
	return nil
}

func (m *Manager) Heartbeat(ctx context.Context, agentID string) (bool, error) {
	return m.store.UpdateAgentHeartbeat(ctx, agentID, m.now())
}

func (m *Manager) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	return m.store.GetTask(ctx, taskID)
}

func (m *Manager) ListTasks(ctx context.Context, status, assignee string) ([]domain.Task, error) {
	return m.store.ListTasks(ctx, status, assignee)
}

func (m *Manager) ListTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskHistoryEntry, error) {
	return m.store.ListTaskHistory(ctx, taskID, limit)
}

func (m *Manager) ListAgents(ctx context.Context, status string) ([]domain.Agent, error) {
	return m.store.ListAgents(ctx, status)
}

func (m *Manager) emit(ctx context.Context, content string) {
	if m.emitter == nil {
		return
	}
	m.emitter.Emit(ctx, "", content)
}
