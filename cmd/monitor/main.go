package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"teamops/internal/domain"
)

type client struct {
	baseURL string
	http    *http.Client
}

type embeddedServer struct {
	cmd *exec.Cmd
}

func main() {
	addr := flag.String("addr", "http://localhost:8791", "teamops api base URL")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	embedded := flag.Bool("embedded", true, "start the api server in the same monitor process lifecycle")
	serverBinary := flag.String("teamops-bin", "", "path to teamops binary (optional in embedded mode)")
	dbPath := flag.String("db", "", "sqlite db path for the embedded server")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	var embeddedProc *embeddedServer
	var err error
	if *embedded {
		embeddedProc, err = startEmbeddedServer(*addr, *serverBinary, *dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start embedded server: %v\n", err)
			os.Exit(1)
		}
		defer embeddedProc.Stop()
	}

	if err := waitHealth(c, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "api health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()
	tasksTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	tasksTable.SetTitle("Tasks (F5 refresh, F10 quit)").SetBorder(true)

	agentsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	agentsView.SetTitle("Agents").SetBorder(true)

	escalationsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	escalationsView.SetTitle("Escalations").SetBorder(true)

	statsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statsView.SetTitle("Dashboard").SetBorder(true)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf("Connected to %s | embedded=%t | F5 refresh, F10 quit", c.baseURL, *embedded))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(agentsView, 0, 2, false).
		AddItem(escalationsView, 0, 2, false).
		AddItem(statsView, 7, 0, false)

	mainLayout := tview.NewFlex().
		AddItem(tasksTable, 0, 3, true).
		AddItem(right, 0, 2, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(statusView, 3, 0, false)

	refresh := func() {
		tasks, tasksErr := c.listTasks()
		agents, agentsErr := c.listAgents()
		escalations, escErr := c.listEscalations()
		stats, statsErr := c.dashboard()

		app.QueueUpdateDraw(func() {
			if tasksErr != nil {
				tasksTable.Clear()
				tasksTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", tasksErr)))
			} else {
				renderTasksTable(tasksTable, tasks)
			}
			if agentsErr != nil {
				agentsView.SetText(fmt.Sprintf("error: %v", agentsErr))
			} else {
				agentsView.SetText(renderAgents(agents))
			}
			if escErr != nil {
				escalationsView.SetText(fmt.Sprintf("error: %v", escErr))
			} else {
				escalationsView.SetText(renderEscalations(escalations))
			}
			if statsErr != nil {
				statsView.SetText(fmt.Sprintf("error: %v", statsErr))
			} else {
				statsView.SetText(renderStats(stats))
			}
		})
	}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go refresh()
			statusView.SetText("Manual refresh")
			return nil
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refresh()
		for range ticker.C {
			refresh()
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(tasksTable).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/healthz", nil)
		if err == nil {
			resp, err := c.http.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode < 300 {
					return nil
				}
			}
		}
		time.Sleep(400 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for /healthz")
}

func startEmbeddedServer(addr, serverBinary, dbPath string) (*embeddedServer, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	port := parsed.Port()
	if port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}

	args := []string{"serve", "--addr", ":" + port}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		args = append(args, "--db", dbPath)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(serverBinary) != "" {
		cmd = exec.Command(serverBinary, args...)
	} else {
		self, err := os.Executable()
		if err == nil {
			sibling := filepath.Join(filepath.Dir(self), "teamops")
			if fileExists(sibling) {
				cmd = exec.Command(sibling, args...)
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", append([]string{"run", "./cmd/teamops"}, args...)...)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start server process: %w", err)
	}
	return &embeddedServer{cmd: cmd}, nil
}

func (e *embeddedServer) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func renderTasksTable(table *tview.Table, tasks []domain.Task) {
	table.Clear()
	headers := []string{"Task", "Status", "Pri", "Prog", "Assignee", "Title"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, t := range tasks {
		row := i + 1
		assignee := t.AssigneeID
		if assignee == "" {
			assignee = "-"
		}
		table.SetCell(row, 0, tview.NewTableCell(t.ID))
		table.SetCell(row, 1, tview.NewTableCell(string(t.Status)))
		table.SetCell(row, 2, tview.NewTableCell(string(t.Priority)))
		table.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d%%", t.Progress)))
		table.SetCell(row, 4, tview.NewTableCell(assignee))
		table.SetCell(row, 5, tview.NewTableCell(trimLine(t.Title, 48)))
	}
}

func renderAgents(agents []domain.Agent) string {
	if len(agents) == 0 {
		return "No agents"
	}
	var b strings.Builder
	for _, a := range agents {
		current := a.CurrentTaskID
		if current == "" {
			current = "-"
		}
		b.WriteString(fmt.Sprintf("%-14s %-8s task=%s done=%d\n", a.ID, a.Status, current, a.TotalTasksCompleted))
	}
	return b.String()
}

func renderEscalations(items []domain.Escalation) string {
	if len(items) == 0 {
		return "No escalations"
	}
	var b strings.Builder
	for _, e := range items {
		b.WriteString(fmt.Sprintf(
			"[%s] %s %s from %s\n  %s\n",
			e.CreatedAt.Format("15:04:05"), e.ID, e.Status, e.FromAgent, trimLine(e.Description, 70),
		))
	}
	return b.String()
}

func renderStats(s domain.DashboardStats) string {
	return fmt.Sprintf(
		"Agents  total=%d active=%d idle=%d blocked=%d\nTasks   total=%d todo=%d running=%d done=%d blocked=%d\nDue today=%d overdue=%d avg progress=%.0f%%",
		s.TotalAgents, s.ActiveAgents, s.IdleAgents, s.BlockedAgents,
		s.TotalTasks, s.TodoTasks, s.InProgressTasks, s.DoneTasks, s.BlockedTasks,
		s.DueToday, s.OverdueTasks, s.AvgProgress,
	)
}

func trimLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func (c *client) listTasks() ([]domain.Task, error) {
	var items []domain.Task
	err := c.getJSON("/tasks", &items)
	return items, err
}

func (c *client) listAgents() ([]domain.Agent, error) {
	var items []domain.Agent
	err := c.getJSON("/agents", &items)
	return items, err
}

func (c *client) listEscalations() ([]domain.Escalation, error) {
	var items []domain.Escalation
	err := c.getJSON("/escalations", &items)
	return items, err
}

func (c *client) dashboard() (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := c.getJSON("/dashboard", &stats)
	return stats, err
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
