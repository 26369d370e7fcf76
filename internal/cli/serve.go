package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"teamops/internal/domain"
	"teamops/internal/report"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			defer env.Close(context.Background())

			go env.dispatcher.Run(ctx)

			if addr == "" {
				addr = env.cfg.Addr
			}
			api := &api{env: env}
			srv := &http.Server{
				Addr:    addr,
				Handler: loggingMiddleware(api.routes()),
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Printf("teamops api listening on %s (db %s)", addr, env.cfg.DBPath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

type api struct {
	env *env
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/tasks", a.handleTasks)
	mux.HandleFunc("/tasks/", a.handleTaskByID)
	mux.HandleFunc("/agents", a.handleAgents)
	mux.HandleFunc("/agents/", a.handleAgentByID)
	mux.HandleFunc("/escalations", a.handleEscalations)
	mux.HandleFunc("/escalations/", a.handleEscalationByID)
	mux.HandleFunc("/conversations", a.handleConversations)
	mux.HandleFunc("/assign/run", a.handleAssignRun)
	mux.HandleFunc("/dashboard", a.handleDashboard)
	mux.HandleFunc("/report", a.handleReport)
	return mux
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *api) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := a.env.manager.ListTasks(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("assignee"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var req struct {
			Title          string  `json:"title"`
			Description    string  `json:"description"`
			ProjectID      string  `json:"project_id"`
			AssigneeID     string  `json:"assignee_id"`
			Priority       string  `json:"priority"`
			EstimatedHours float64 `json:"estimated_hours"`
			DueDate        string  `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
		if req.Title == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("title is required"))
			return
		}
		task := domain.Task{
			Title:          req.Title,
			Description:    req.Description,
			ProjectID:      req.ProjectID,
			AssigneeID:     req.AssigneeID,
			Priority:       domain.TaskPriority(req.Priority),
			EstimatedHours: req.EstimatedHours,
		}
		if req.DueDate != "" {
			due, err := time.Parse("2006-01-02", req.DueDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid due_date %q", req.DueDate))
				return
			}
			task.DueDate = &due
		}
		created, err := a.env.manager.CreateTask(r.Context(), task)
		if err != nil {
			if errors.Is(err, domain.ErrMissingProject) {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *api) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/tasks/")
	parts := strings.Split(trimmed, "/")
	taskID := parts[0]
	if taskID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("task id is required"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		task, err := a.env.manager.GetTask(r.Context(), taskID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
		return
	}

	action := parts[1]
	if action == "history" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		history, err := a.env.manager.ListTaskHistory(r.Context(), taskID, 0)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AgentID  string `json:"agent_id"`
		Progress int    `json:"progress"`
		Notes    string `json:"notes"`
		Reason   string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
	}

	switch action {
	case "assign":
		if req.AgentID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("agent_id is required"))
			return
		}
		ok, err := a.env.manager.Assign(r.Context(), taskID, req.AgentID)
		a.writeApplied(w, "assigned", taskID, ok, err)
	case "start":
		_, ok, err := a.env.manager.Start(r.Context(), taskID, req.AgentID)
		a.writeApplied(w, "started", taskID, ok, err)
	case "progress":
		ok, err := a.env.manager.UpdateProgress(r.Context(), taskID, req.Progress, req.Notes)
		a.writeApplied(w, "progress updated", taskID, ok, err)
	case "review":
		task, err := a.env.manager.SendToReview(r.Context(), taskID)
		a.writeTransition(w, task, err)
	case "block":
		if req.Reason == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("reason is required"))
			return
		}
		_, ok, err := a.env.manager.Block(r.Context(), taskID, req.Reason)
		a.writeApplied(w, "blocked", taskID, ok, err)
	case "unblock":
		task, err := a.env.manager.Unblock(r.Context(), taskID)
		a.writeTransition(w, task, err)
	case "done":
		task, ok, err := a.env.manager.Complete(r.Context(), taskID)
		if err == nil && ok {
			writeJSON(w, http.StatusOK, task)
			return
		}
		a.writeApplied(w, "completed", taskID, ok, err)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
	}
}

func (a *api) writeApplied(w http.ResponseWriter, status, taskID string, ok bool, err error) {
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("task %s not found", taskID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "task_id": taskID})
}

func (a *api) writeTransition(w http.ResponseWriter, task domain.Task, err error) {
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, domain.ErrNotFound) {
			code = http.StatusNotFound
		} else if errors.Is(err, domain.ErrInvalidTransition) {
			code = http.StatusConflict
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *api) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agents, err := a.env.manager.ListAgents(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, agents)
	case http.MethodPost:
		var req struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
		if req.ID == "" || req.Role == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("id and role are required"))
			return
		}
		if req.Name == "" {
			req.Name = req.ID
		}
		if err := a.env.manager.AddAgent(r.Context(), domain.Agent{ID: req.ID, Name: req.Name, Role: req.Role}); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"status": "created", "agent_id": req.ID})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *api) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/agents/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 2 && parts[1] == "heartbeat" && r.Method == http.MethodPost {
		ok, err := a.env.manager.Heartbeat(r.Context(), parts[0])
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("agent %s not found", parts[0]))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (a *api) handleEscalations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.env.router.ListEscalations(r.Context(), r.URL.Query().Get("status"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req struct {
			FromAgent   string `json:"from_agent"`
			Description string `json:"description"`
			TaskID      string `json:"task_id"`
			IssueType   string `json:"issue_type"`
			Urgency     string `json:"urgency"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
		if req.FromAgent == "" || req.Description == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("from_agent and description are required"))
			return
		}
		result, err := a.env.router.RequestHelp(r.Context(), req.FromAgent, req.Description, req.TaskID, req.IssueType, req.Urgency)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *api) handleEscalationByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/escalations/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	escalationID := parts[0]

	var req struct {
		Helper     string `json:"helper"`
		Answer     string `json:"answer"`
		ResolvedBy string `json:"resolved_by"`
		Notes      string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
	}

	switch parts[1] {
	case "reply":
		if req.Helper == "" || req.Answer == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("helper and answer are required"))
			return
		}
		result, err := a.env.router.Reply(r.Context(), escalationID, req.Helper, req.Answer)
		if err != nil {
			a.writeEscalationError(w, escalationID, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case "resolve":
		if req.ResolvedBy == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("resolved_by is required"))
			return
		}
		result, err := a.env.router.Resolve(r.Context(), escalationID, req.ResolvedBy, req.Notes)
		if err != nil {
			a.writeEscalationError(w, escalationID, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", parts[1]))
	}
}

func (a *api) writeEscalationError(w http.ResponseWriter, escalationID string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("escalation %s not found", escalationID))
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func (a *api) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := a.env.router.ListConversations(r.Context(), r.URL.Query().Get("agent"), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) handleAssignRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	summary, err := a.env.engine.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := a.env.store.DashboardStats(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *api) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out, err := report.Daily(r.Context(), a.env.store, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
