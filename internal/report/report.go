package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamops/internal/domain"
)

// Store is the read surface the daily report needs.
type Store interface {
	DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
	ListCompletedBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	ListTasks(ctx context.Context, status, assignee string) ([]domain.Task, error)
	ListAgents(ctx context.Context, status string) ([]domain.Agent, error)
}

// FormatDuration renders minutes as day/hour/minute parts, omitting
// zero units: "1d 2h", "1d 30m", "2h", "45m". A nil or negative
// duration renders as "-", zero as "0m".
func FormatDuration(minutes *int) string {
	if minutes == nil {
		return "-"
	}
	m := *minutes
	if m < 0 {
		return "-"
	}
	days := m / (24 * 60)
	hours := (m % (24 * 60)) / 60
	mins := m % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}

// Daily renders the markdown status report for the day containing now.
func Daily(ctx context.Context, store Store, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	stats, err := store.DashboardStats(ctx, now)
	if err != nil {
		return "", fmt.Errorf("report stats: %w", err)
	}
	completed, err := store.ListCompletedBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return "", fmt.Errorf("report completed: %w", err)
	}
	inProgress, err := store.ListTasks(ctx, string(domain.TaskStatusInProgress), "")
	if err != nil {
		return "", fmt.Errorf("report in-progress: %w", err)
	}
	blocked, err := store.ListTasks(ctx, string(domain.TaskStatusBlocked), "")
	if err != nil {
		return "", fmt.Errorf("report blocked: %w", err)
	}
	agents, err := store.ListAgents(ctx, "")
	if err != nil {
		return "", fmt.Errorf("report agents: %w", err)
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Report - %s\n\n", now.Format("2006-01-02"))

	fmt.Fprintf(&b, "## Summary\n")
	fmt.Fprintf(&b, "- Agents: %d (%d active, %d idle, %d blocked)\n",
		stats.TotalAgents, stats.ActiveAgents, stats.IdleAgents, stats.BlockedAgents)
	fmt.Fprintf(&b, "- Tasks: %d total, %d todo, %d in progress, %d done, %d blocked\n",
		stats.TotalTasks, stats.TodoTasks, stats.InProgressTasks, stats.DoneTasks, stats.BlockedTasks)
	fmt.Fprintf(&b, "- Due today: %d, overdue: %d\n", stats.DueToday, stats.OverdueTasks)
	fmt.Fprintf(&b, "- Average progress (open tasks): %.0f%%\n", stats.AvgProgress)

	fmt.Fprintf(&b, "\n## Completed today (%d)\n", len(completed))
	if len(completed) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range completed {
		fmt.Fprintf(&b, "- %s: %s (%s, %s)\n", t.ID, t.Title, agentName(names, t.AssigneeID), FormatDuration(t.ActualDurationMinutes))
	}

	fmt.Fprintf(&b, "\n## In progress\n")
	if len(inProgress) == 0 {
		b.WriteString("- none\n")
	}
	for i, t := range inProgress {
		if i >= 5 {
			fmt.Fprintf(&b, "- and %d more\n", len(inProgress)-5)
			break
		}
		fmt.Fprintf(&b, "- %s: %s - %d%% (%s)\n", t.ID, t.Title, t.Progress, agentName(names, t.AssigneeID))
	}

	fmt.Fprintf(&b, "\n## Blocked\n")
	if len(blocked) == 0 {
		b.WriteString("- none\n")
	}
	for _, t := range blocked {
		fmt.Fprintf(&b, "- %s: %s - %s\n", t.ID, t.Title, t.BlockedReason)
	}

	return b.String(), nil
}

func agentName(names map[string]string, agentID string) string {
	if agentID == "" {
		return "unassigned"
	}
	if name, ok := names[agentID]; ok {
		return name
	}
	return agentID
}
