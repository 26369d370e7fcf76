package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"teamops/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'idle',
	current_task_id TEXT NOT NULL DEFAULT '',
	total_tasks_assigned INTEGER NOT NULL DEFAULT 0,
	total_tasks_completed INTEGER NOT NULL DEFAULT 0,
	last_heartbeat INTEGER NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL,
	assignee_id TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'normal',
	status TEXT NOT NULL DEFAULT 'todo',
	progress INTEGER NOT NULL DEFAULT 0,
	estimated_hours REAL NOT NULL DEFAULT 0,
	due_date INTEGER NULL,
	started_at INTEGER NULL,
	completed_at INTEGER NULL,
	actual_duration_minutes INTEGER NULL,
	blocked_reason TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status, created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id, status);

CREATE TABLE IF NOT EXISTS task_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	agent_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	old_status TEXT NOT NULL DEFAULT '',
	new_status TEXT NOT NULL DEFAULT '',
	old_progress INTEGER NULL,
	new_progress INTEGER NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	FOREIGN KEY(task_id) REFERENCES tasks(id)
);
CREATE INDEX IF NOT EXISTS idx_task_history_task ON task_history(task_id, created_at);

CREATE TABLE IF NOT EXISTS conversations (
	conversation_id TEXT PRIMARY KEY,
	from_agent TEXT NOT NULL,
	to_agent TEXT NOT NULL DEFAULT '',
	message_type TEXT NOT NULL,
	content TEXT NOT NULL,
	context_task_id TEXT NOT NULL DEFAULT '',
	urgency TEXT NOT NULL DEFAULT 'normal',
	status TEXT NOT NULL DEFAULT 'sent',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);

CREATE TABLE IF NOT EXISTS escalations (
	escalation_id TEXT PRIMARY KEY,
	from_agent TEXT NOT NULL,
	assigned_helper TEXT NOT NULL DEFAULT '',
	task_id TEXT NOT NULL DEFAULT '',
	issue_type TEXT NOT NULL DEFAULT 'technical',
	description TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'normal',
	status TEXT NOT NULL DEFAULT 'open',
	resolved_at INTEGER NULL,
	resolution_notes TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalations(status, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	notification_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set sqlite pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// ---- agents ----

func (s *Store) CreateAgent(ctx context.Context, agent domain.Agent) error {
	now := time.Now().UTC()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	if agent.UpdatedAt.IsZero() {
		agent.UpdatedAt = now
	}
	if agent.Status == "" {
		agent.Status = domain.AgentStatusIdle
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO agents(
			id, name, role, status, current_task_id, total_tasks_assigned,
			total_tasks_completed, last_heartbeat, created_at, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Name, agent.Role, string(agent.Status), agent.CurrentTaskID,
		agent.TotalTasksAssigned, agent.TotalTasksCompleted, nullableUnix(agent.LastHeartbeat),
		agent.CreatedAt.Unix(), agent.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

const agentColumns = `id, name, role, status, current_task_id, total_tasks_assigned,
	total_tasks_completed, last_heartbeat, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (domain.Agent, error) {
	var a domain.Agent
	var status string
	var heartbeat sql.NullInt64
	var created, updated int64
	if err := row.Scan(
		&a.ID, &a.Name, &a.Role, &status, &a.CurrentTaskID, &a.TotalTasksAssigned,
		&a.TotalTasksCompleted, &heartbeat, &created, &updated,
	); err != nil {
		return domain.Agent{}, err
	}
	a.Status = domain.AgentStatus(status)
	a.LastHeartbeat = int64ToTimePtr(heartbeat)
	a.CreatedAt = unixToTime(created)
	a.UpdatedAt = unixToTime(updated)
	return a, nil
}

func (s *Store) GetAgent(ctx context.Context, agentID string) (domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, agentID)
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (s *Store) ListAgents(ctx context.Context, status string) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		result = append(result, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return result, nil
}

// ListIdleAgents returns idle agents with no current task, least-loaded
// first (ascending by completed-task count).
func (s *Store) ListIdleAgents(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+agentColumns+` FROM agents
		WHERE status = ? AND current_task_id = ''
		ORDER BY total_tasks_completed ASC, id ASC`,
		string(domain.AgentStatusIdle),
	)
	if err != nil {
		return nil, fmt.Errorf("list idle agents: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idle agent: %w", err)
		}
		result = append(result, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle agents: %w", err)
	}
	return result, nil
}

func (s *Store) UpdateAgentHeartbeat(ctx context.Context, agentID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE agents SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Unix(), now.Unix(), agentID,
	)
	if err != nil {
		return false, fmt.Errorf("update agent heartbeat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat affected rows: %w", err)
	}
	return affected > 0, nil
}

// ResetAgentIdle clears the agent back to idle with no current task.
func (s *Store) ResetAgentIdle(ctx context.Context, agentID string, now time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE agents SET status = ?, current_task_id = '', updated_at = ? WHERE id = ?`,
		string(domain.AgentStatusIdle), now.Unix(), agentID,
	)
	if err != nil {
		return fmt.Errorf("reset agent idle: %w", err)
	}
	return nil
}

func (s *Store) CountAgents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count agents: %w", err)
	}
	return count, nil
}

func (s *Store) CountInProgressTasks(ctx context.Context, agentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM tasks WHERE assignee_id = ? AND status = ?`,
		agentID, string(domain.TaskStatusInProgress),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count in-progress tasks: %w", err)
	}
	return count, nil
}

// ---- tasks ----

const taskColumns = `id, title, description, project_id, assignee_id, priority, status,
	progress, estimated_hours, due_date, started_at, completed_at,
	actual_duration_minutes, blocked_reason, notes, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var priority, status string
	var due, started, completed, duration sql.NullInt64
	var created, updated int64
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.ProjectID, &t.AssigneeID, &priority, &status,
		&t.Progress, &t.EstimatedHours, &due, &started, &completed,
		&duration, &t.BlockedReason, &t.Notes, &created, &updated,
	); err != nil {
		return domain.Task{}, err
	}
	t.Priority = domain.TaskPriority(priority)
	t.Status = domain.TaskStatus(status)
	t.DueDate = int64ToTimePtr(due)
	t.StartedAt = int64ToTimePtr(started)
	t.CompletedAt = int64ToTimePtr(completed)
	if duration.Valid {
		v := int(duration.Int64)
		t.ActualDurationMinutes = &v
	}
	t.CreatedAt = unixToTime(created)
	t.UpdatedAt = unixToTime(updated)
	return t, nil
}

// CreateTask inserts a new task in todo status, generating its
// date-scoped sequential id (T-<YYYYMMDD>-<seq>) inside the same
// transaction as the insert so concurrent creates cannot collide.
func (s *Store) CreateTask(ctx context.Context, task domain.Task, now time.Time) (domain.Task, error) {
	if strings.TrimSpace(task.ProjectID) == "" {
		return domain.Task{}, domain.ErrMissingProject
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityNormal
	}
	task.Status = domain.TaskStatusTodo
	task.CreatedAt = now
	task.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx create task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	prefix := "T-" + now.Format("20060102") + "-"
	var count int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM tasks WHERE id LIKE ?`,
		prefix+"%",
	).Scan(&count); err != nil {
		return domain.Task{}, fmt.Errorf("count daily tasks: %w", err)
	}
	task.ID = fmt.Sprintf("%s%03d", prefix, count+1)

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO tasks(
			id, title, description, project_id, assignee_id, priority, status,
			progress, estimated_hours, due_date, created_at, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.ProjectID, task.AssigneeID,
		string(task.Priority), string(task.Status), task.EstimatedHours,
		nullableUnix(task.DueDate), task.CreatedAt.Unix(), task.UpdatedAt.Unix(),
	); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    task.ID,
		AgentID:   task.AssigneeID,
		Action:    "created",
		NewStatus: domain.TaskStatusTodo,
		Notes:     fmt.Sprintf("Task created with priority %s", task.Priority),
	}, now); err != nil {
		return domain.Task{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, fmt.Errorf("commit create task: %w", err)
	}
	return task, nil
}

func (s *Store) GetTask(ctx context.Context, taskID string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *Store) ListTasks(ctx context.Context, status, assignee string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if assignee != "" {
		query += ` AND assignee_id = ?`
		args = append(args, assignee)
	}
	query += ` ORDER BY
		CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date,
		CASE priority WHEN 'critical' THEN 1 WHEN 'high' THEN 2 WHEN 'normal' THEN 3 ELSE 4 END,
		created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return result, nil
}

// ListUnassignedTodoTasks returns todo tasks without assignee, most
// urgent first (priority rank, then creation time).
func (s *Store) ListUnassignedTodoTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE status = ? AND assignee_id = ''
		ORDER BY
			CASE priority WHEN 'critical' THEN 1 WHEN 'high' THEN 2 WHEN 'normal' THEN 3 ELSE 4 END,
			created_at ASC`,
		string(domain.TaskStatusTodo),
	)
	if err != nil {
		return nil, fmt.Errorf("list unassigned tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unassigned task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unassigned tasks: %w", err)
	}
	return result, nil
}

// ListStartableAssignedTasks returns todo tasks that already carry an
// assignee whose agent is still idle (assignments made outside the
// engine that can be activated).
func (s *Store) ListStartableAssignedTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumnsPrefixed("t")+` FROM tasks t
		JOIN agents a ON a.id = t.assignee_id
		WHERE t.status = ? AND t.assignee_id != '' AND a.status = ?
		ORDER BY t.created_at ASC`,
		string(domain.TaskStatusTodo), string(domain.AgentStatusIdle),
	)
	if err != nil {
		return nil, fmt.Errorf("list startable tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan startable task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate startable tasks: %w", err)
	}
	return result, nil
}

func taskColumnsPrefixed(alias string) string {
	cols := strings.Split(taskColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// AssignTask sets the assignee and bumps the agent's assigned counter
// in one transaction. Returns false without error when the task does
// not exist.
func (s *Store) AssignTask(ctx context.Context, taskID, agentID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx assign task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET assignee_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		agentID, string(domain.TaskStatusTodo), now.Unix(), taskID,
	)
	if err != nil {
		return false, fmt.Errorf("assign task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign affected rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE agents
		SET total_tasks_assigned = total_tasks_assigned + 1,
			current_task_id = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		taskID, string(domain.AgentStatusActive), now.Unix(), agentID,
	); err != nil {
		return false, fmt.Errorf("update agent on assign: %w", err)
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:  taskID,
		AgentID: agentID,
		Action:  "assigned",
		Notes:   fmt.Sprintf("Assigned to %s", agentID),
	}, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit assign task: %w", err)
	}
	return true, nil
}

// StartTask moves a task to in_progress and records started_at. The
// owning agent becomes active with the task as its current one.
func (s *Store) StartTask(ctx context.Context, taskID, agentID string, now time.Time) (domain.Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("begin tx start task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("read task for start: %w", err)
	}

	oldStatus := task.Status
	if agentID == "" {
		agentID = task.AssigneeID
	}
	started := now
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, started_at = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusInProgress), started.Unix(), now.Unix(), taskID,
	); err != nil {
		return domain.Task{}, false, fmt.Errorf("start task: %w", err)
	}

	if agentID != "" {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE agents SET status = ?, current_task_id = ?, last_heartbeat = ?, updated_at = ? WHERE id = ?`,
			string(domain.AgentStatusActive), taskID, now.Unix(), now.Unix(), agentID,
		); err != nil {
			return domain.Task{}, false, fmt.Errorf("update agent on start: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    taskID,
		AgentID:   agentID,
		Action:    "started",
		OldStatus: oldStatus,
		NewStatus: domain.TaskStatusInProgress,
	}, now); err != nil {
		return domain.Task{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, false, fmt.Errorf("commit start task: %w", err)
	}
	task.Status = domain.TaskStatusInProgress
	task.StartedAt = &started
	task.AssigneeID = agentID
	return task, true, nil
}

// SendTaskToReview moves in_progress -> review. Any other current
// status is rejected with ErrInvalidTransition and nothing changes.
func (s *Store) SendTaskToReview(ctx context.Context, taskID string, now time.Time) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx review task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("read task for review: %w", err)
	}
	if task.Status != domain.TaskStatusInProgress {
		return domain.Task{}, fmt.Errorf("task %s is %s, not in_progress: %w", taskID, task.Status, domain.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusReview), now.Unix(), taskID,
	); err != nil {
		return domain.Task{}, fmt.Errorf("send task to review: %w", err)
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    taskID,
		AgentID:   task.AssigneeID,
		Action:    "updated",
		OldStatus: domain.TaskStatusInProgress,
		NewStatus: domain.TaskStatusReview,
	}, now); err != nil {
		return domain.Task{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, fmt.Errorf("commit review task: %w", err)
	}
	task.Status = domain.TaskStatusReview
	return task, nil
}

// UpdateTaskProgress sets progress 0-100 and overwrites notes only when
// non-empty. Returns false when the task does not exist.
func (s *Store) UpdateTaskProgress(ctx context.Context, taskID string, progress int, notes string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx progress: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read task for progress: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks
		SET progress = ?, updated_at = ?,
			notes = CASE WHEN ? != '' THEN ? ELSE notes END
		WHERE id = ?`,
		progress, now.Unix(), notes, notes, taskID,
	); err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}

	oldProgress := task.Progress
	newProgress := progress
	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:      taskID,
		AgentID:     task.AssigneeID,
		Action:      "updated",
		OldProgress: &oldProgress,
		NewProgress: &newProgress,
		Notes:       notes,
	}, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit progress: %w", err)
	}
	return true, nil
}

// CompleteTask marks a task done with progress 100. The duration is
// computed once, from started_at to now, and the owning agent returns
// to idle with its completed counter bumped. Returns false when the
// task does not exist.
func (s *Store) CompleteTask(ctx context.Context, taskID string, now time.Time) (domain.Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("begin tx complete task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("read task for complete: %w", err)
	}

	oldStatus := task.Status
	completed := now
	var duration any
	if task.ActualDurationMinutes != nil {
		duration = *task.ActualDurationMinutes
	} else if task.StartedAt != nil {
		v := int(math.Round(completed.Sub(*task.StartedAt).Seconds() / 60))
		duration = v
		task.ActualDurationMinutes = &v
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks
		SET status = ?, progress = 100, completed_at = ?, actual_duration_minutes = ?, updated_at = ?
		WHERE id = ?`,
		string(domain.TaskStatusDone), completed.Unix(), duration, now.Unix(), taskID,
	); err != nil {
		return domain.Task{}, false, fmt.Errorf("complete task: %w", err)
	}

	if task.AssigneeID != "" {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE agents
			SET total_tasks_completed = total_tasks_completed + 1,
				current_task_id = '', status = ?, updated_at = ?
			WHERE id = ?`,
			string(domain.AgentStatusIdle), now.Unix(), task.AssigneeID,
		); err != nil {
			return domain.Task{}, false, fmt.Errorf("update agent on complete: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    taskID,
		AgentID:   task.AssigneeID,
		Action:    "completed",
		OldStatus: oldStatus,
		NewStatus: domain.TaskStatusDone,
	}, now); err != nil {
		return domain.Task{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, false, fmt.Errorf("commit complete task: %w", err)
	}
	task.Status = domain.TaskStatusDone
	task.Progress = 100
	task.CompletedAt = &completed
	return task, true, nil
}

// BlockTask marks the task and its owning agent blocked. Returns false
// when the task does not exist.
func (s *Store) BlockTask(ctx context.Context, taskID, reason string, now time.Time) (domain.Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("begin tx block task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, fmt.Errorf("read task for block: %w", err)
	}

	oldStatus := task.Status
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, blocked_reason = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusBlocked), reason, now.Unix(), taskID,
	); err != nil {
		return domain.Task{}, false, fmt.Errorf("block task: %w", err)
	}

	if task.AssigneeID != "" {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`,
			string(domain.AgentStatusBlocked), now.Unix(), task.AssigneeID,
		); err != nil {
			return domain.Task{}, false, fmt.Errorf("update agent on block: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    taskID,
		AgentID:   task.AssigneeID,
		Action:    "blocked",
		OldStatus: oldStatus,
		NewStatus: domain.TaskStatusBlocked,
		Notes:     reason,
	}, now); err != nil {
		return domain.Task{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, false, fmt.Errorf("commit block task: %w", err)
	}
	task.Status = domain.TaskStatusBlocked
	task.BlockedReason = reason
	return task, true, nil
}

// UnblockTask resumes a blocked task (blocked -> in_progress). Any
// other current status is rejected with ErrInvalidTransition.
func (s *Store) UnblockTask(ctx context.Context, taskID string, now time.Time) (domain.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("begin tx unblock task: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	task, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("read task for unblock: %w", err)
	}
	if task.Status != domain.TaskStatusBlocked {
		return domain.Task{}, fmt.Errorf("task %s is %s, not blocked: %w", taskID, task.Status, domain.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(domain.TaskStatusInProgress), now.Unix(), taskID,
	); err != nil {
		return domain.Task{}, fmt.Errorf("unblock task: %w", err)
	}

	if task.AssigneeID != "" {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`,
			string(domain.AgentStatusActive), now.Unix(), task.AssigneeID,
		); err != nil {
			return domain.Task{}, fmt.Errorf("update agent on unblock: %w", err)
		}
	}

	if err := appendHistory(ctx, tx, domain.TaskHistoryEntry{
		TaskID:    taskID,
		AgentID:   task.AssigneeID,
		Action:    "unblocked",
		OldStatus: domain.TaskStatusBlocked,
		NewStatus: domain.TaskStatusInProgress,
	}, now); err != nil {
		return domain.Task{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Task{}, fmt.Errorf("commit unblock task: %w", err)
	}
	task.Status = domain.TaskStatusInProgress
	return task, nil
}

// RecalculateDurations backfills actual_duration_minutes for done tasks
// with both timestamps and no recorded duration. Re-running is a no-op
// for already-populated rows.
func (s *Store) RecalculateDurations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks
		SET actual_duration_minutes = CAST(ROUND((completed_at - started_at) / 60.0) AS INTEGER)
		WHERE status = ?
			AND completed_at IS NOT NULL
			AND started_at IS NOT NULL
			AND actual_duration_minutes IS NULL`,
		string(domain.TaskStatusDone),
	)
	if err != nil {
		return 0, fmt.Errorf("recalculate durations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recalculate affected rows: %w", err)
	}
	return affected, nil
}

func (s *Store) ListCompletedBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks
		WHERE status = ? AND completed_at IS NOT NULL AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at ASC`,
		string(domain.TaskStatusDone), from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completed task: %w", err)
		}
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed tasks: %w", err)
	}
	return result, nil
}

func (s *Store) ListTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskHistoryEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, task_id, agent_id, action, old_status, new_status,
			old_progress, new_progress, notes, created_at
		FROM task_history
		WHERE task_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		taskID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}
	defer rows.Close()

	result := make([]domain.TaskHistoryEntry, 0, limit)
	for rows.Next() {
		var e domain.TaskHistoryEntry
		var oldStatus, newStatus string
		var oldProgress, newProgress sql.NullInt64
		var created int64
		if err := rows.Scan(
			&e.ID, &e.TaskID, &e.AgentID, &e.Action, &oldStatus, &newStatus,
			&oldProgress, &newProgress, &e.Notes, &created,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.OldStatus = domain.TaskStatus(oldStatus)
		e.NewStatus = domain.TaskStatus(newStatus)
		if oldProgress.Valid {
			v := int(oldProgress.Int64)
			e.OldProgress = &v
		}
		if newProgress.Valid {
			v := int(newProgress.Int64)
			e.NewProgress = &v
		}
		e.CreatedAt = unixToTime(created)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return result, nil
}

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	row := s.db.QueryRowContext(
		ctx,
		`SELECT
			(SELECT COUNT(*) FROM agents),
			(SELECT COUNT(*) FROM agents WHERE status = 'active'),
			(SELECT COUNT(*) FROM agents WHERE status = 'idle'),
			(SELECT COUNT(*) FROM agents WHERE status = 'blocked'),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE status = 'todo'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'in_progress'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'done'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'blocked'),
			(SELECT COUNT(*) FROM tasks WHERE status != 'done' AND due_date IS NOT NULL AND due_date >= ? AND due_date < ?),
			(SELECT COUNT(*) FROM tasks WHERE status != 'done' AND due_date IS NOT NULL AND due_date < ?),
			(SELECT COALESCE(AVG(progress), 0) FROM tasks WHERE status != 'done')`,
		dayStart.Unix(), dayEnd.Unix(), now.Unix(),
	)

	var stats domain.DashboardStats
	if err := row.Scan(
		&stats.TotalAgents, &stats.ActiveAgents, &stats.IdleAgents, &stats.BlockedAgents,
		&stats.TotalTasks, &stats.TodoTasks, &stats.InProgressTasks, &stats.DoneTasks,
		&stats.BlockedTasks, &stats.DueToday, &stats.OverdueTasks, &stats.AvgProgress,
	); err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// ---- messaging ----

// CreateHelpRequest inserts the escalation and its help conversation in
// one transaction.
func (s *Store) CreateHelpRequest(ctx context.Context, esc domain.Escalation, conv domain.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx help request: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO escalations(
			escalation_id, from_agent, assigned_helper, task_id, issue_type,
			description, priority, status, resolution_notes, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, '', ?)`,
		esc.ID, esc.FromAgent, esc.AssignedHelper, esc.TaskID, esc.IssueType,
		esc.Description, esc.Priority, string(esc.Status), esc.CreatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}

	if err := insertConversation(ctx, tx, conv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit help request: %w", err)
	}
	return nil
}

func (s *Store) GetEscalation(ctx context.Context, escalationID string) (domain.Escalation, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT escalation_id, from_agent, assigned_helper, task_id, issue_type,
			description, priority, status, resolved_at, resolution_notes, created_at
		FROM escalations WHERE escalation_id = ?`,
		escalationID,
	)
	esc, err := scanEscalation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Escalation{}, fmt.Errorf("escalation %s: %w", escalationID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Escalation{}, fmt.Errorf("get escalation: %w", err)
	}
	return esc, nil
}

func scanEscalation(row interface{ Scan(...any) error }) (domain.Escalation, error) {
	var e domain.Escalation
	var status string
	var resolved sql.NullInt64
	var created int64
	if err := row.Scan(
		&e.ID, &e.FromAgent, &e.AssignedHelper, &e.TaskID, &e.IssueType,
		&e.Description, &e.Priority, &status, &resolved, &e.ResolutionNotes, &created,
	); err != nil {
		return domain.Escalation{}, err
	}
	e.Status = domain.EscalationStatus(status)
	e.ResolvedAt = int64ToTimePtr(resolved)
	e.CreatedAt = unixToTime(created)
	return e, nil
}

// SaveReply inserts the answer conversation and moves the escalation to
// in_progress with the replying agent as helper, atomically.
func (s *Store) SaveReply(ctx context.Context, escalationID, helper string, conv domain.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx reply: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`UPDATE escalations SET assigned_helper = ?, status = ? WHERE escalation_id = ?`,
		helper, string(domain.EscalationStatusInProgress), escalationID,
	)
	if err != nil {
		return fmt.Errorf("update escalation on reply: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reply affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %s: %w", escalationID, domain.ErrNotFound)
	}

	if err := insertConversation(ctx, tx, conv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reply: %w", err)
	}
	return nil
}

// MarkEscalationResolved sets the terminal resolved state. Returns
// false when the escalation does not exist.
func (s *Store) MarkEscalationResolved(ctx context.Context, escalationID, notes string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE escalations
		SET status = ?, resolved_at = ?, resolution_notes = ?
		WHERE escalation_id = ?`,
		string(domain.EscalationStatusResolved), now.Unix(), notes, escalationID,
	)
	if err != nil {
		return false, fmt.Errorf("resolve escalation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	return insertConversation(ctx, s.db, conv)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertConversation(ctx context.Context, db execer, conv domain.Conversation) error {
	if conv.Status == "" {
		conv.Status = "sent"
	}
	if conv.Urgency == "" {
		conv.Urgency = "normal"
	}
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO conversations(
			conversation_id, from_agent, to_agent, message_type, content,
			context_task_id, urgency, status, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.FromAgent, conv.ToAgent, string(conv.Type), conv.Content,
		conv.ContextTaskID, conv.Urgency, conv.Status, conv.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ListConversations filters by agent (as sender, explicit recipient, or
// unaddressed broadcast) and status, newest first.
func (s *Store) ListConversations(ctx context.Context, agentID, status string) ([]domain.Conversation, error) {
	query := `SELECT conversation_id, from_agent, to_agent, message_type, content,
		context_task_id, urgency, status, created_at
	FROM conversations WHERE 1=1`
	var args []any
	if agentID != "" {
		query += ` AND (from_agent = ? OR to_agent = ? OR to_agent = '')`
		args = append(args, agentID, agentID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, conversation_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Conversation, 0)
	for rows.Next() {
		var c domain.Conversation
		var msgType string
		var created int64
		if err := rows.Scan(
			&c.ID, &c.FromAgent, &c.ToAgent, &msgType, &c.Content,
			&c.ContextTaskID, &c.Urgency, &c.Status, &created,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.Type = domain.MessageType(msgType)
		c.CreatedAt = unixToTime(created)
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return result, nil
}

func (s *Store) ListEscalations(ctx context.Context, status string) ([]domain.Escalation, error) {
	query := `SELECT escalation_id, from_agent, assigned_helper, task_id, issue_type,
		description, priority, status, resolved_at, resolution_notes, created_at
	FROM escalations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, escalation_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Escalation, 0)
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escalation: %w", err)
		}
		result = append(result, esc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalations: %w", err)
	}
	return result, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO notifications(notification_id, conversation_id, content, created_at)
		VALUES(?, ?, ?, ?)`,
		n.ID, n.ConversationID, n.Content, n.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT notification_id, conversation_id, content, created_at
		FROM notifications
		ORDER BY created_at DESC, notification_id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		var created int64
		if err := rows.Scan(&n.ID, &n.ConversationID, &n.Content, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = unixToTime(created)
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return result, nil
}

// ---- helpers ----

func appendHistory(ctx context.Context, tx execer, entry domain.TaskHistoryEntry, now time.Time) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO task_history(
			task_id, agent_id, action, old_status, new_status,
			old_progress, new_progress, notes, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TaskID, entry.AgentID, entry.Action, string(entry.OldStatus), string(entry.NewStatus),
		nullableInt(entry.OldProgress), nullableInt(entry.NewProgress), entry.Notes, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append task history: %w", err)
	}
	return nil
}

func int64ToTimePtr(v sql.NullInt64) *time.Time {
	if !v.Valid || v.Int64 <= 0 {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func unixToTime(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Unix()
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
