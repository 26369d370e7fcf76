package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an operation references an unknown
	// task, agent, or escalation id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a lifecycle precondition
	// fails (e.g. review on a task that is not in progress).
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrMissingProject is returned when task creation lacks a project.
	ErrMissingProject = errors.New("project_id is required")
)

type AgentStatus string

const (
	AgentStatusIdle    AgentStatus = "idle"
	AgentStatusActive  AgentStatus = "active"
	AgentStatusBlocked AgentStatus = "blocked"
	AgentStatusOffline AgentStatus = "offline"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

type TaskPriority string

const (
	TaskPriorityCritical TaskPriority = "critical"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityNormal   TaskPriority = "normal"
	TaskPriorityLow      TaskPriority = "low"
)

// Rank orders priorities for scheduling: lower rank is more urgent.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityCritical:
		return 1
	case TaskPriorityHigh:
		return 2
	case TaskPriorityNormal:
		return 3
	case TaskPriorityLow:
		return 4
	default:
		return 5
	}
}

type EscalationStatus string

const (
	EscalationStatusOpen       EscalationStatus = "open"
	EscalationStatusInProgress EscalationStatus = "in_progress"
	EscalationStatusResolved   EscalationStatus = "resolved"
)

type MessageType string

const (
	MessageTypeHelp      MessageType = "help"
	MessageTypeAnswer    MessageType = "answer"
	MessageTypeBroadcast MessageType = "broadcast"
)

type Agent struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Role                string      `json:"role"`
	Status              AgentStatus `json:"status"`
	CurrentTaskID       string      `json:"current_task_id,omitempty"`
	TotalTasksAssigned  int         `json:"total_tasks_assigned"`
	TotalTasksCompleted int         `json:"total_tasks_completed"`
	LastHeartbeat       *time.Time  `json:"last_heartbeat,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

type Task struct {
	ID                    string       `json:"id"`
	Title                 string       `json:"title"`
	Description           string       `json:"description,omitempty"`
	ProjectID             string       `json:"project_id"`
	AssigneeID            string       `json:"assignee_id,omitempty"`
	Priority              TaskPriority `json:"priority"`
	Status                TaskStatus   `json:"status"`
	Progress              int          `json:"progress"`
	EstimatedHours        float64      `json:"estimated_hours,omitempty"`
	DueDate               *time.Time   `json:"due_date,omitempty"`
	StartedAt             *time.Time   `json:"started_at,omitempty"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
	ActualDurationMinutes *int         `json:"actual_duration_minutes,omitempty"`
	BlockedReason         string       `json:"blocked_reason,omitempty"`
	Notes                 string       `json:"notes,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// TaskHistoryEntry is one append-only audit record for a task. Rows are
// written once per lifecycle event and never updated or deleted.
type TaskHistoryEntry struct {
	ID          int64      `json:"id"`
	TaskID      string     `json:"task_id"`
	AgentID     string     `json:"agent_id,omitempty"`
	Action      string     `json:"action"`
	OldStatus   TaskStatus `json:"old_status,omitempty"`
	NewStatus   TaskStatus `json:"new_status,omitempty"`
	OldProgress *int       `json:"old_progress,omitempty"`
	NewProgress *int       `json:"new_progress,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Escalation struct {
	ID              string           `json:"escalation_id"`
	FromAgent       string           `json:"from_agent"`
	AssignedHelper  string           `json:"assigned_helper,omitempty"`
	TaskID          string           `json:"task_id,omitempty"`
	IssueType       string           `json:"issue_type"`
	Description     string           `json:"description"`
	Priority        string           `json:"priority"`
	Status          EscalationStatus `json:"status"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	ResolutionNotes string           `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Conversation is an immutable message envelope. Only Status may change
// after creation.
type Conversation struct {
	ID            string      `json:"conversation_id"`
	FromAgent     string      `json:"from_agent"`
	ToAgent       string      `json:"to_agent,omitempty"`
	Type          MessageType `json:"message_type"`
	Content       string      `json:"content"`
	ContextTaskID string      `json:"context_task_id,omitempty"`
	Urgency       string      `json:"urgency"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Notification is a write-once rendered payload handed to the external
// delivery channel.
type Notification struct {
	ID             string    `json:"notification_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type DashboardStats struct {
	TotalAgents     int     `json:"total_agents"`
	ActiveAgents    int     `json:"active_agents"`
	IdleAgents      int     `json:"idle_agents"`
	BlockedAgents   int     `json:"blocked_agents"`
	TotalTasks      int     `json:"total_tasks"`
	TodoTasks       int     `json:"todo_tasks"`
	InProgressTasks int     `json:"in_progress_tasks"`
	DoneTasks       int     `json:"done_tasks"`
	BlockedTasks    int     `json:"blocked_tasks"`
	DueToday        int     `json:"due_today"`
	OverdueTasks    int     `json:"overdue_tasks"`
	AvgProgress     float64 `json:"avg_progress"`
}
