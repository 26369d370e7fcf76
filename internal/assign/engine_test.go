package assign

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teamops/internal/config"
	"teamops/internal/domain"
	"teamops/internal/lifecycle"
	"teamops/internal/store/sqlite"
)

type captureEmitter struct {
	messages []string
}

func (c *captureEmitter) Emit(_ context.Context, _ string, content string) {
	c.messages = append(c.messages, content)
}

func newTestEngine(t *testing.T) (*Engine, *sqlite.Store, *lifecycle.Manager, *captureEmitter) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mgr := lifecycle.New(store, nil, func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}, nil)
	emitter := &captureEmitter{}
	engine := New(store, mgr, emitter, config.DefaultAssignmentKeywords(), nil)
	return engine, store, mgr, emitter
}

func TestKeywordMatchingRoutesByRole(t *testing.T) {
	ctx := context.Background()
	engine, store, mgr, emitter := newTestEngine(t)

	agents := []domain.Agent{
		{ID: "ux-1", Name: "UX Designer", Role: "ux-designer"},
		{ID: "backend-dev", Name: "Backend Dev", Role: "dev"},
		{ID: "qa-bot", Name: "QA", Role: "qa"},
	}
	for _, a := range agents {
		if err := store.CreateAgent(ctx, a); err != nil {
			t.Fatalf("create agent %s: %v", a.ID, err)
		}
	}

	uiTask, err := mgr.CreateTask(ctx, domain.Task{Title: "Polish the UI layout", ProjectID: "webapp"})
	if err != nil {
		t.Fatalf("create ui task: %v", err)
	}
	apiTask, err := mgr.CreateTask(ctx, domain.Task{Title: "Add API pagination", ProjectID: "webapp"})
	if err != nil {
		t.Fatalf("create api task: %v", err)
	}
	bugTask, err := mgr.CreateTask(ctx, domain.Task{Title: "Fix flaky test in checkout", ProjectID: "webapp"})
	if err != nil {
		t.Fatalf("create bug task: %v", err)
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.Assigned) != 3 {
		t.Fatalf("assigned=%v want 3 pairs", summary.Assigned)
	}

	got := map[string]string{}
	for _, p := range summary.Assigned {
		got[p.TaskID] = p.AgentID
	}
	if got[uiTask.ID] != "ux-1" {
		t.Fatalf("ui task went to %s", got[uiTask.ID])
	}
	if got[apiTask.ID] != "backend-dev" {
		t.Fatalf("api task went to %s", got[apiTask.ID])
	}
	if got[bugTask.ID] != "qa-bot" {
		t.Fatalf("bug task went to %s", got[bugTask.ID])
	}

	// pass one both assigns and starts
	for _, p := range summary.Assigned {
		task, err := store.GetTask(ctx, p.TaskID)
		if err != nil {
			t.Fatalf("get %s: %v", p.TaskID, err)
		}
		if task.Status != domain.TaskStatusInProgress {
			t.Fatalf("task %s status=%s want in_progress", task.ID, task.Status)
		}
	}
	if summary.Started != 3 {
		t.Fatalf("started=%d want=3", summary.Started)
	}

	if len(emitter.messages) != 1 || !strings.Contains(emitter.messages[0], "3 task(s) assigned") {
		t.Fatalf("summary notification=%v", emitter.messages)
	}
}

func TestNoDoubleBookingWithinRun(t *testing.T) {
	ctx := context.Background()
	engine, store, mgr, _ := newTestEngine(t)

	if err := store.CreateAgent(ctx, domain.Agent{ID: "solo-dev", Name: "Solo", Role: "solo-dev"}); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	for _, title := range []string{"Frontend widget", "Backend cache", "Deploy pipeline"} {
		if _, err := mgr.CreateTask(ctx, domain.Task{Title: title, ProjectID: "webapp"}); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.Assigned) != 1 {
		t.Fatalf("assigned=%v want one pair for the single agent", summary.Assigned)
	}

	unassigned, err := store.ListUnassignedTodoTasks(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(unassigned) != 2 {
		t.Fatalf("unassigned=%d want=2", len(unassigned))
	}
}

func TestFallbackWhenNoKeywordMatches(t *testing.T) {
	ctx := context.Background()
	engine, store, mgr, _ := newTestEngine(t)

	if err := store.CreateAgent(ctx, domain.Agent{ID: "writer-1", Name: "Writer", Role: "tech-writer", TotalTasksCompleted: 2}); err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if err := store.CreateAgent(ctx, domain.Agent{ID: "dev-1", Name: "Dev", Role: "dev", TotalTasksCompleted: 5}); err != nil {
		t.Fatalf("create dev: %v", err)
	}

	task, err := mgr.CreateTask(ctx, domain.Task{Title: "Mystery chore", ProjectID: "ops"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// least-loaded idle agent wins when nothing matches
	if len(summary.Assigned) != 1 || summary.Assigned[0].TaskID != task.ID || summary.Assigned[0].AgentID != "writer-1" {
		t.Fatalf("assigned=%v want fallback to writer-1", summary.Assigned)
	}
}

func TestLeastLoadedAgentWinsKeywordFreeTask(t *testing.T) {
	ctx := context.Background()
	engine, store, mgr, _ := newTestEngine(t)

	// aa-bot sorts first in the idle pool and carries a stale
	// in_progress task, so its score is negative; bb-bot is clean.
	if err := store.CreateAgent(ctx, domain.Agent{ID: "aa-bot", Name: "AA", Role: "dev"}); err != nil {
		t.Fatalf("create aa-bot: %v", err)
	}
	if err := store.CreateAgent(ctx, domain.Agent{ID: "bb-bot", Name: "BB", Role: "dev"}); err != nil {
		t.Fatalf("create bb-bot: %v", err)
	}

	stale, err := mgr.CreateTask(ctx, domain.Task{Title: "Old groundwork", ProjectID: "ops"})
	if err != nil {
		t.Fatalf("create stale task: %v", err)
	}
	if ok, err := mgr.Assign(ctx, stale.ID, "aa-bot"); err != nil || !ok {
		t.Fatalf("assign stale: ok=%v err=%v", ok, err)
	}
	if _, ok, err := mgr.Start(ctx, stale.ID, "aa-bot"); err != nil || !ok {
		t.Fatalf("start stale: ok=%v err=%v", ok, err)
	}
	resetAgentToIdle(t, store, "aa-bot")

	task, err := mgr.CreateTask(ctx, domain.Task{Title: "Sweep the backlog", ProjectID: "ops"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	got := map[string]string{}
	for _, p := range summary.Assigned {
		got[p.TaskID] = p.AgentID
	}
	if got[task.ID] != "bb-bot" {
		t.Fatalf("task went to %s want bb-bot", got[task.ID])
	}
}

func TestSecondPassStartsExternalAssignments(t *testing.T) {
	ctx := context.Background()
	engine, store, mgr, _ := newTestEngine(t)

	if err := store.CreateAgent(ctx, domain.Agent{ID: "backend-dev", Name: "Backend Dev", Role: "dev"}); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	task, err := mgr.CreateTask(ctx, domain.Task{Title: "Manual pick", ProjectID: "webapp"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if ok, err := mgr.Assign(ctx, task.ID, "backend-dev"); err != nil || !ok {
		t.Fatalf("assign: ok=%v err=%v", ok, err)
	}
	// simulate the assignment having happened without activation
	resetAgentToIdle(t, store, "backend-dev")

	summary, err := engine.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(summary.Assigned) != 0 || summary.Started != 1 {
		t.Fatalf("summary=%+v want 0 assigned / 1 started", summary)
	}
	got, err := store.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != domain.TaskStatusInProgress {
		t.Fatalf("status=%s want in_progress", got.Status)
	}
}

func resetAgentToIdle(t *testing.T, store *sqlite.Store, agentID string) {
	t.Helper()
	ctx := context.Background()
	agents, err := store.ListAgents(ctx, "")
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	found := false
	for _, a := range agents {
		if a.ID == agentID {
			found = true
		}
	}
	if !found {
		t.Fatalf("agent %s not found", agentID)
	}
	if err := store.ResetAgentIdle(ctx, agentID, time.Now().UTC()); err != nil {
		t.Fatalf("reset agent: %v", err)
	}
}
