package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"teamops/internal/domain"
)

func TestTaskCreationIDsAndProjectGuard(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	first, err := store.CreateTask(ctx, domain.Task{Title: "Fix login bug", ProjectID: "webapp"}, now)
	if err != nil {
		t.Fatalf("create first task: %v", err)
	}
	if first.ID != "T-20260314-001" {
		t.Fatalf("first id=%s want=T-20260314-001", first.ID)
	}
	second, err := store.CreateTask(ctx, domain.Task{Title: "Write docs", ProjectID: "webapp"}, now)
	if err != nil {
		t.Fatalf("create second task: %v", err)
	}
	if second.ID != "T-20260314-002" {
		t.Fatalf("second id=%s want=T-20260314-002", second.ID)
	}

	nextDay := now.Add(24 * time.Hour)
	third, err := store.CreateTask(ctx, domain.Task{Title: "Deploy", ProjectID: "webapp"}, nextDay)
	if err != nil {
		t.Fatalf("create next-day task: %v", err)
	}
	if third.ID != "T-20260315-001" {
		t.Fatalf("next-day id=%s want=T-20260315-001", third.ID)
	}

	if _, err := store.CreateTask(ctx, domain.Task{Title: "No project"}, now); !errors.Is(err, domain.ErrMissingProject) {
		t.Fatalf("missing project err=%v want ErrMissingProject", err)
	}
	tasks, err := store.ListTasks(ctx, "", "")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("tasks=%d want=3 (rejected create must not persist)", len(tasks))
	}

	history, err := store.ListTaskHistory(ctx, first.ID, 0)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Action != "created" {
		t.Fatalf("history=%+v want one created entry", history)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := store.CreateAgent(ctx, domain.Agent{ID: "backend-dev", Name: "Backend Dev", Role: "backend"}); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	task, err := store.CreateTask(ctx, domain.Task{Title: "API endpoint", ProjectID: "webapp"}, now)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	ok, err := store.AssignTask(ctx, task.ID, "backend-dev", now)
	if err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	agent, err := store.GetAgent(ctx, "backend-dev")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.Status != domain.AgentStatusActive || agent.CurrentTaskID != task.ID || agent.TotalTasksAssigned != 1 {
		t.Fatalf("agent after assign=%+v", agent)
	}

	// review requires in_progress
	if _, err := store.SendTaskToReview(ctx, task.ID, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("review from todo err=%v want ErrInvalidTransition", err)
	}

	started, ok, err := store.StartTask(ctx, task.ID, "backend-dev", now)
	if err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}
	if started.Status != domain.TaskStatusInProgress || started.StartedAt == nil {
		t.Fatalf("task after start=%+v", started)
	}

	if ok, err := store.UpdateTaskProgress(ctx, task.ID, 40, "halfway on handlers", now); err != nil || !ok {
		t.Fatalf("progress: ok=%v err=%v", ok, err)
	}
	// empty notes keep the previous ones
	if ok, err := store.UpdateTaskProgress(ctx, task.ID, 60, "", now); err != nil || !ok {
		t.Fatalf("progress no-notes: ok=%v err=%v", ok, err)
	}
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Progress != 60 || got.Notes != "halfway on handlers" {
		t.Fatalf("progress=%d notes=%q want 60 / kept notes", got.Progress, got.Notes)
	}

	completedAt := now.Add(90 * time.Minute)
	done, ok, err := store.CompleteTask(ctx, task.ID, completedAt)
	if err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	if done.Status != domain.TaskStatusDone || done.Progress != 100 {
		t.Fatalf("task after complete=%+v", done)
	}
	if done.ActualDurationMinutes == nil || *done.ActualDurationMinutes != 90 {
		t.Fatalf("duration=%v want 90", done.ActualDurationMinutes)
	}
	agent, err = store.GetAgent(ctx, "backend-dev")
	if err != nil {
		t.Fatalf("get agent after complete: %v", err)
	}
	if agent.Status != domain.AgentStatusIdle || agent.CurrentTaskID != "" || agent.TotalTasksCompleted != 1 {
		t.Fatalf("agent after complete=%+v", agent)
	}
}

func TestBlockUnblock(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	if err := store.CreateAgent(ctx, domain.Agent{ID: "qa", Name: "QA", Role: "qa"}); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	task, err := store.CreateTask(ctx, domain.Task{Title: "Regression suite", ProjectID: "webapp"}, now)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := store.UnblockTask(ctx, task.ID, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("unblock from todo err=%v want ErrInvalidTransition", err)
	}

	if ok, err := store.AssignTask(ctx, task.ID, "qa", now); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.StartTask(ctx, task.ID, "qa", now); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}

	blocked, ok, err := store.BlockTask(ctx, task.ID, "waiting on test env", now)
	if err != nil || !ok {
		t.Fatalf("block: ok=%v err=%v", ok, err)
	}
	if blocked.Status != domain.TaskStatusBlocked || blocked.BlockedReason != "waiting on test env" {
		t.Fatalf("task after block=%+v", blocked)
	}
	agent, err := store.GetAgent(ctx, "qa")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.Status != domain.AgentStatusBlocked {
		t.Fatalf("agent status=%s want blocked", agent.Status)
	}

	resumed, err := store.UnblockTask(ctx, task.ID, now)
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if resumed.Status != domain.TaskStatusInProgress {
		t.Fatalf("task after unblock=%+v", resumed)
	}
	agent, err = store.GetAgent(ctx, "qa")
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if agent.Status != domain.AgentStatusActive {
		t.Fatalf("agent status=%s want active", agent.Status)
	}
}

func TestMissingTaskRowsAreSilentNoOps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Now().UTC()
	if ok, err := store.AssignTask(ctx, "T-00000000-001", "nobody", now); err != nil || ok {
		t.Fatalf("assign missing: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.StartTask(ctx, "T-00000000-001", "", now); err != nil || ok {
		t.Fatalf("start missing: ok=%v err=%v", ok, err)
	}
	if ok, err := store.UpdateTaskProgress(ctx, "T-00000000-001", 50, "", now); err != nil || ok {
		t.Fatalf("progress missing: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.CompleteTask(ctx, "T-00000000-001", now); err != nil || ok {
		t.Fatalf("complete missing: ok=%v err=%v", ok, err)
	}
	if _, err := store.GetTask(ctx, "T-00000000-001"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get missing err=%v want ErrNotFound", err)
	}
}

func TestRecalculateDurationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	task, err := store.CreateTask(ctx, domain.Task{Title: "Backfill", ProjectID: "ops"}, now)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, ok, err := store.StartTask(ctx, task.ID, "", now); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.CompleteTask(ctx, task.ID, now.Add(45*time.Minute)); err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}
	// clear the recorded duration to simulate legacy rows
	if _, err := store.db.ExecContext(ctx, `UPDATE tasks SET actual_duration_minutes = NULL WHERE id = ?`, task.ID); err != nil {
		t.Fatalf("clear duration: %v", err)
	}

	updated, err := store.RecalculateDurations(ctx)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated=%d want=1", updated)
	}
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.ActualDurationMinutes == nil || *got.ActualDurationMinutes != 45 {
		t.Fatalf("duration=%v want 45", got.ActualDurationMinutes)
	}

	again, err := store.RecalculateDurations(ctx)
	if err != nil {
		t.Fatalf("recalculate again: %v", err)
	}
	if again != 0 {
		t.Fatalf("second run updated=%d want=0", again)
	}
}

func TestIdleAgentOrderingAndAssignmentQueues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	if err := store.CreateAgent(ctx, domain.Agent{ID: "veteran", Name: "Veteran", Role: "backend", TotalTasksCompleted: 9}); err != nil {
		t.Fatalf("create veteran: %v", err)
	}
	if err := store.CreateAgent(ctx, domain.Agent{ID: "rookie", Name: "Rookie", Role: "backend", TotalTasksCompleted: 1}); err != nil {
		t.Fatalf("create rookie: %v", err)
	}
	if err := store.CreateAgent(ctx, domain.Agent{ID: "busy", Name: "Busy", Role: "frontend", Status: domain.AgentStatusActive, CurrentTaskID: "T-x"}); err != nil {
		t.Fatalf("create busy: %v", err)
	}

	idle, err := store.ListIdleAgents(ctx)
	if err != nil {
		t.Fatalf("list idle: %v", err)
	}
	if len(idle) != 2 || idle[0].ID != "rookie" || idle[1].ID != "veteran" {
		t.Fatalf("idle order=%+v want rookie then veteran", idle)
	}

	low, err := store.CreateTask(ctx, domain.Task{Title: "Cleanup", ProjectID: "ops", Priority: domain.TaskPriorityLow}, now)
	if err != nil {
		t.Fatalf("create low: %v", err)
	}
	critical, err := store.CreateTask(ctx, domain.Task{Title: "Hotfix", ProjectID: "ops", Priority: domain.TaskPriorityCritical}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create critical: %v", err)
	}

	queue, err := store.ListUnassignedTodoTasks(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != critical.ID || queue[1].ID != low.ID {
		t.Fatalf("queue=%+v want critical first", queue)
	}

	// assign outside the engine, agent goes active; reset it to idle to
	// simulate an external assignment that never started
	if ok, err := store.AssignTask(ctx, low.ID, "rookie", now); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	if _, err := store.db.ExecContext(ctx, `UPDATE agents SET status='idle', current_task_id='' WHERE id='rookie'`); err != nil {
		t.Fatalf("reset rookie: %v", err)
	}
	startable, err := store.ListStartableAssignedTasks(ctx)
	if err != nil {
		t.Fatalf("list startable: %v", err)
	}
	if len(startable) != 1 || startable[0].ID != low.ID {
		t.Fatalf("startable=%+v want the externally assigned task", startable)
	}
}

func TestEscalationFlow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	esc := domain.Escalation{
		ID:          "ESC-AAAA1111",
		FromAgent:   "frontend-dev",
		IssueType:   "technical",
		Description: "database schema question",
		Priority:    "high",
		Status:      domain.EscalationStatusOpen,
		CreatedAt:   created,
	}
	conv := domain.Conversation{
		ID:        "CONV-AAAA1111",
		FromAgent: "frontend-dev",
		ToAgent:   "architect",
		Type:      domain.MessageTypeHelp,
		Content:   "database schema question",
		Urgency:   "high",
		Status:    "sent",
		CreatedAt: created,
	}
	if err := store.CreateHelpRequest(ctx, esc, conv); err != nil {
		t.Fatalf("create help request: %v", err)
	}

	reply := domain.Conversation{
		ID:        "CONV-BBBB2222",
		FromAgent: "architect",
		ToAgent:   "frontend-dev",
		Type:      domain.MessageTypeAnswer,
		Content:   "use a junction table",
		Status:    "sent",
		CreatedAt: created.Add(30 * time.Minute),
	}
	if err := store.SaveReply(ctx, esc.ID, "architect", reply); err != nil {
		t.Fatalf("save reply: %v", err)
	}
	got, err := store.GetEscalation(ctx, esc.ID)
	if err != nil {
		t.Fatalf("get escalation: %v", err)
	}
	if got.Status != domain.EscalationStatusInProgress || got.AssignedHelper != "architect" {
		t.Fatalf("escalation after reply=%+v", got)
	}

	if err := store.SaveReply(ctx, "ESC-MISSING0", "architect", reply); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reply to missing err=%v want ErrNotFound", err)
	}

	ok, err := store.MarkEscalationResolved(ctx, esc.ID, "junction table added", created.Add(2*time.Hour))
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	got, err = store.GetEscalation(ctx, esc.ID)
	if err != nil {
		t.Fatalf("get resolved escalation: %v", err)
	}
	if got.Status != domain.EscalationStatusResolved || got.ResolvedAt == nil || got.ResolutionNotes != "junction table added" {
		t.Fatalf("escalation after resolve=%+v", got)
	}

	if ok, err := store.MarkEscalationResolved(ctx, "ESC-MISSING0", "", created); err != nil || ok {
		t.Fatalf("resolve missing: ok=%v err=%v", ok, err)
	}
}

func TestConversationFiltering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	convs := []domain.Conversation{
		{ID: "CONV-00000001", FromAgent: "alice", ToAgent: "bob", Type: domain.MessageTypeHelp, Content: "a", Status: "sent", CreatedAt: base},
		{ID: "CONV-00000002", FromAgent: "bob", ToAgent: "carol", Type: domain.MessageTypeAnswer, Content: "b", Status: "sent", CreatedAt: base.Add(time.Minute)},
		{ID: "CONV-00000003", FromAgent: "carol", ToAgent: "", Type: domain.MessageTypeBroadcast, Content: "all hands", Status: "sent", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, c := range convs {
		if err := store.CreateConversation(ctx, c); err != nil {
			t.Fatalf("create conversation %s: %v", c.ID, err)
		}
	}

	// alice sees: her own send + the broadcast, newest first
	forAlice, err := store.ListConversations(ctx, "alice", "")
	if err != nil {
		t.Fatalf("list for alice: %v", err)
	}
	if len(forAlice) != 2 || forAlice[0].ID != "CONV-00000003" || forAlice[1].ID != "CONV-00000001" {
		t.Fatalf("alice conversations=%+v", forAlice)
	}

	// bob sees all three: sender of one, recipient of one, broadcast
	forBob, err := store.ListConversations(ctx, "bob", "")
	if err != nil {
		t.Fatalf("list for bob: %v", err)
	}
	if len(forBob) != 3 {
		t.Fatalf("bob conversations=%d want=3", len(forBob))
	}
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if err := store.CreateAgent(ctx, domain.Agent{ID: "a1", Name: "A1", Role: "backend"}); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := store.CreateAgent(ctx, domain.Agent{ID: "a2", Name: "A2", Role: "qa", Status: domain.AgentStatusActive}); err != nil {
		t.Fatalf("create agent: %v", err)
	}

	dueToday := now.Add(3 * time.Hour)
	overdue := now.Add(-48 * time.Hour)
	if _, err := store.CreateTask(ctx, domain.Task{Title: "Due soon", ProjectID: "p", DueDate: &dueToday}, now); err != nil {
		t.Fatalf("create due-today: %v", err)
	}
	if _, err := store.CreateTask(ctx, domain.Task{Title: "Late", ProjectID: "p", DueDate: &overdue}, now); err != nil {
		t.Fatalf("create overdue: %v", err)
	}
	doneTask, err := store.CreateTask(ctx, domain.Task{Title: "Finished", ProjectID: "p"}, now)
	if err != nil {
		t.Fatalf("create done: %v", err)
	}
	if _, ok, err := store.CompleteTask(ctx, doneTask.ID, now); err != nil || !ok {
		t.Fatalf("complete: ok=%v err=%v", ok, err)
	}

	stats, err := store.DashboardStats(ctx, now)
	if err != nil {
		t.Fatalf("dashboard stats: %v", err)
	}
	if stats.TotalAgents != 2 || stats.ActiveAgents != 1 || stats.IdleAgents != 1 {
		t.Fatalf("agent counts=%+v", stats)
	}
	if stats.TotalTasks != 3 || stats.TodoTasks != 2 || stats.DoneTasks != 1 {
		t.Fatalf("task counts=%+v", stats)
	}
	if stats.DueToday != 1 || stats.OverdueTasks != 1 {
		t.Fatalf("due=%d overdue=%d want 1/1", stats.DueToday, stats.OverdueTasks)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		t.Fatalf("migrate store: %v", err)
	}
	return store
}
