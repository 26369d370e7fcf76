package assign

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"teamops/internal/domain"
)

const (
	keywordScore      = 10
	loadPenaltyPerRun = 5
)

// Store provides the read side of a run: who is free and what waits.
type Store interface {
	ListIdleAgents(ctx context.Context) ([]domain.Agent, error)
	ListUnassignedTodoTasks(ctx context.Context) ([]domain.Task, error)
	ListStartableAssignedTasks(ctx context.Context) ([]domain.Task, error)
	CountInProgressTasks(ctx context.Context, agentID string) (int, error)
}

// Lifecycle funnels every mutation through the task state machine so
// history and notifications stay uniform.
type Lifecycle interface {
	Assign(ctx context.Context, taskID, agentID string) (bool, error)
	Start(ctx context.Context, taskID, agentID string) (domain.Task, bool, error)
}

type Emitter interface {
	Emit(ctx context.Context, conversationID, content string)
}

type Pair struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
}

type Summary struct {
	Assigned []Pair `json:"assigned"`
	Started  int    `json:"started"`
}

type Engine struct {
	store     Store
	lifecycle Lifecycle
	emitter   Emitter
	keywords  map[string][]string
	logger    *log.Logger
}

func New(store Store, lifecycle Lifecycle, emitter Emitter, keywords map[string][]string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		store:     store,
		lifecycle: lifecycle,
		emitter:   emitter,
		keywords:  keywords,
		logger:    logger,
	}
}

// Run executes one matching pass. Unassigned todo tasks are walked in
// priority order; each picks the best-scoring idle agent and the agent
// leaves the pool, so no agent is double-booked within a run. A second
// pass activates tasks assigned outside the engine whose agent is
// still idle.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	agents, err := e.store.ListIdleAgents(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load idle agents: %w", err)
	}
	tasks, err := e.store.ListUnassignedTodoTasks(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load unassigned tasks: %w", err)
	}

	load := make(map[string]int, len(agents))
	for _, a := range agents {
		n, err := e.store.CountInProgressTasks(ctx, a.ID)
		if err != nil {
			return Summary{}, fmt.Errorf("load agent %s load: %w", a.ID, err)
		}
		load[a.ID] = n
	}

	for _, task := range tasks {
		if len(agents) == 0 {
			break
		}
		idx := e.pickAgent(task, agents, load)
		agent := agents[idx]
		agents = append(agents[:idx], agents[idx+1:]...)

		if ok, err := e.lifecycle.Assign(ctx, task.ID, agent.ID); err != nil {
			return summary, fmt.Errorf("assign %s to %s: %w", task.ID, agent.ID, err)
		} else if !ok {
			continue
		}
		if _, ok, err := e.lifecycle.Start(ctx, task.ID, agent.ID); err != nil {
			return summary, fmt.Errorf("start %s: %w", task.ID, err)
		} else if ok {
			summary.Started++
		}
		summary.Assigned = append(summary.Assigned, Pair{TaskID: task.ID, AgentID: agent.ID})
		e.logger.Printf("assign: %s -> %s", task.ID, agent.ID)
	}

	startable, err := e.store.ListStartableAssignedTasks(ctx)
	if err != nil {
		return summary, fmt.Errorf("load startable tasks: %w", err)
	}
	for _, task := range startable {
		if _, ok, err := e.lifecycle.Start(ctx, task.ID, task.AssigneeID); err != nil {
			return summary, fmt.Errorf("start assigned %s: %w", task.ID, err)
		} else if ok {
			summary.Started++
			e.logger.Printf("assign: started externally assigned %s (%s)", task.ID, task.AssigneeID)
		}
	}

	if e.emitter != nil && (len(summary.Assigned) > 0 || summary.Started > 0) {
		e.emitter.Emit(ctx, "", e.renderSummary(summary))
	}
	return summary, nil
}

// pickAgent returns the index of the best-scoring agent for the task.
// The highest score wins even when every score is negative; ties keep
// the first-encountered agent (the pool is ordered by load, least busy
// first).
func (e *Engine) pickAgent(task domain.Task, agents []domain.Agent, load map[string]int) int {
	text := strings.ToLower(task.Title + " " + task.Description)

	best := 0
	bestScore := math.MinInt
	for i, agent := range agents {
		score := 0
		for keyword, roles := range e.keywords {
			if !strings.Contains(text, keyword) {
				continue
			}
			for _, role := range roles {
				if role == agent.ID || role == agent.Role {
					score += keywordScore
					break
				}
			}
		}
		score -= loadPenaltyPerRun * load[agent.ID]
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func (e *Engine) renderSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auto-assign: %d task(s) assigned, %d started", len(s.Assigned), s.Started)
	for _, p := range s.Assigned {
		fmt.Fprintf(&b, "\n  %s -> %s", p.TaskID, p.AgentID)
	}
	return b.String()
}
