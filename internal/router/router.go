package router

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"teamops/internal/domain"
)

// Store is the persistence surface for escalations and conversations.
type Store interface {
	CreateHelpRequest(ctx context.Context, esc domain.Escalation, conv domain.Conversation) error
	GetEscalation(ctx context.Context, escalationID string) (domain.Escalation, error)
	SaveReply(ctx context.Context, escalationID, helper string, conv domain.Conversation) error
	MarkEscalationResolved(ctx context.Context, escalationID, notes string, now time.Time) (bool, error)
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	CountAgents(ctx context.Context) (int, error)
	ListConversations(ctx context.Context, agentID, status string) ([]domain.Conversation, error)
	ListEscalations(ctx context.Context, status string) ([]domain.Escalation, error)
}

type Emitter interface {
	Emit(ctx context.Context, conversationID, content string)
}

type HelpResult struct {
	EscalationID   string   `json:"escalation_id"`
	ConversationID string   `json:"conversation_id"`
	Helpers        []string `json:"helpers"`
}

type ReplyResult struct {
	ConversationID string `json:"conversation_id"`
	To             string `json:"to"`
}

type ResolveResult struct {
	Minutes  int      `json:"resolution_minutes"`
	Involved []string `json:"involved_agents"`
}

type BroadcastResult struct {
	ConversationID string `json:"conversation_id"`
	Recipients     int    `json:"recipients"`
}

type Router struct {
	store           Store
	emitter         Emitter
	helperKeywords  map[string][]string
	fallbackHelpers []string
	now             func() time.Time
	logger          *log.Logger
}

func New(store Store, emitter Emitter, helperKeywords map[string][]string, fallbackHelpers []string, clock func() time.Time, logger *log.Logger) *Router {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = log.Default()
	}
	if len(fallbackHelpers) == 0 {
		fallbackHelpers = []string{"architect", "solo-dev"}
	}
	return &Router{
		store:           store,
		emitter:         emitter,
		helperKeywords:  helperKeywords,
		fallbackHelpers: fallbackHelpers,
		now:             clock,
		logger:          logger,
	}
}

// RequestHelp opens an escalation with its help conversation in one
// transaction, then notifies the suggested helpers.
func (r *Router) RequestHelp(ctx context.Context, fromAgent, description, taskID, issueType, urgency string) (HelpResult, error) {
	if issueType == "" {
		issueType = "technical"
	}
	if urgency == "" {
		urgency = "normal"
	}
	now := r.now()
	helpers := r.deriveHelpers(description)

	esc := domain.Escalation{
		ID:          newID("ESC"),
		FromAgent:   fromAgent,
		TaskID:      taskID,
		IssueType:   issueType,
		Description: description,
		Priority:    urgency,
		Status:      domain.EscalationStatusOpen,
		CreatedAt:   now,
	}
	conv := domain.Conversation{
		ID:            newID("CONV"),
		FromAgent:     fromAgent,
		ToAgent:       helpers[0],
		Type:          domain.MessageTypeHelp,
		Content:       description,
		ContextTaskID: taskID,
		Urgency:       urgency,
		Status:        "sent",
		CreatedAt:     now,
	}
	if err := r.store.CreateHelpRequest(ctx, esc, conv); err != nil {
		return HelpResult{}, err
	}

	text := fmt.Sprintf(
		"%sHELP REQUEST from %s (%s)\nIssue: %s\nSuggested helpers: %s\nReply with: msg reply %s <answer>",
		urgencyTag(urgency), fromAgent, issueType, truncate(description, 100),
		strings.Join(helpers, ", "), esc.ID,
	)
	r.emit(ctx, conv.ID, text)
	return HelpResult{EscalationID: esc.ID, ConversationID: conv.ID, Helpers: helpers}, nil
}

// Reply records an answer on an open escalation. The escalation moves
// to in_progress with the replying agent as its helper.
func (r *Router) Reply(ctx context.Context, escalationID, helper, answer string) (ReplyResult, error) {
	esc, err := r.store.GetEscalation(ctx, escalationID)
	if err != nil {
		return ReplyResult{}, err
	}
	conv := domain.Conversation{
		ID:            newID("CONV"),
		FromAgent:     helper,
		ToAgent:       esc.FromAgent,
		Type:          domain.MessageTypeAnswer,
		Content:       answer,
		ContextTaskID: esc.TaskID,
		Urgency:       esc.Priority,
		Status:        "sent",
		CreatedAt:     r.now(),
	}
	if err := r.store.SaveReply(ctx, escalationID, helper, conv); err != nil {
		return ReplyResult{}, err
	}

	text := fmt.Sprintf(
		"AGENT REPLY from %s to %s (re %s)\nIssue: %s\nAnswer: %s",
		helper, esc.FromAgent, escalationID,
		truncate(esc.Description, 100), truncate(answer, 100),
	)
	r.emit(ctx, conv.ID, text)
	return ReplyResult{ConversationID: conv.ID, To: esc.FromAgent}, nil
}

// Resolve closes the escalation and reports how long it stayed open
// and who was involved: the requester, the helper, and the resolving
// agent. A missing escalation returns ErrNotFound and nothing is
// written or notified.
func (r *Router) Resolve(ctx context.Context, escalationID, resolvedBy, notes string) (ResolveResult, error) {
	esc, err := r.store.GetEscalation(ctx, escalationID)
	if err != nil {
		return ResolveResult{}, err
	}
	now := r.now()
	ok, err := r.store.MarkEscalationResolved(ctx, escalationID, notes, now)
	if err != nil {
		return ResolveResult{}, err
	}
	if !ok {
		return ResolveResult{}, fmt.Errorf("escalation %s: %w", escalationID, domain.ErrNotFound)
	}

	minutes := int(now.Sub(esc.CreatedAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	involved := dedupe([]string{esc.FromAgent, esc.AssignedHelper, resolvedBy})

	text := fmt.Sprintf(
		"ISSUE RESOLVED %s by %s after %s\nInvolved: %s",
		escalationID, resolvedBy, FormatResolutionTime(minutes), strings.Join(involved, ", "),
	)
	if notes != "" {
		text += "\nNotes: " + truncate(notes, 100)
	}
	r.emit(ctx, "", text)
	return ResolveResult{Minutes: minutes, Involved: involved}, nil
}

// Broadcast records an unaddressed conversation visible to every
// agent. The recipient count is the agent population at send time.
func (r *Router) Broadcast(ctx context.Context, fromAgent, content, urgency string) (BroadcastResult, error) {
	if urgency == "" {
		urgency = "normal"
	}
	recipients, err := r.store.CountAgents(ctx)
	if err != nil {
		return BroadcastResult{}, err
	}
	conv := domain.Conversation{
		ID:        newID("CONV"),
		FromAgent: fromAgent,
		Type:      domain.MessageTypeBroadcast,
		Content:   content,
		Urgency:   urgency,
		Status:    "sent",
		CreatedAt: r.now(),
	}
	if err := r.store.CreateConversation(ctx, conv); err != nil {
		return BroadcastResult{}, err
	}

	text := fmt.Sprintf("%sBROADCAST from %s\n%s", urgencyTag(urgency), fromAgent, truncate(content, 100))
	r.emit(ctx, conv.ID, text)
	return BroadcastResult{ConversationID: conv.ID, Recipients: recipients}, nil
}

func (r *Router) ListConversations(ctx context.Context, agentID, status string) ([]domain.Conversation, error) {
	return r.store.ListConversations(ctx, agentID, status)
}

func (r *Router) ListEscalations(ctx context.Context, status string) ([]domain.Escalation, error) {
	return r.store.ListEscalations(ctx, status)
}

// deriveHelpers scans the issue text against the helper keyword table.
// Roles keep first-match order and duplicates collapse; no match falls
// back to the configured default pair.
func (r *Router) deriveHelpers(description string) []string {
	text := strings.ToLower(description)
	keywords := make([]string, 0, len(r.helperKeywords))
	for keyword := range r.helperKeywords {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	var helpers []string
	seen := map[string]bool{}
	for _, keyword := range keywords {
		if !strings.Contains(text, keyword) {
			continue
		}
		for _, role := range r.helperKeywords[keyword] {
			if !seen[role] {
				seen[role] = true
				helpers = append(helpers, role)
			}
		}
	}
	if len(helpers) == 0 {
		return append([]string{}, r.fallbackHelpers...)
	}
	return helpers
}

func (r *Router) emit(ctx context.Context, conversationID, content string) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(ctx, conversationID, content)
}

// FormatResolutionTime renders minutes as "{h}h {m}m", omitting the
// hour part when zero.
func FormatResolutionTime(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func urgencyTag(urgency string) string {
	switch urgency {
	case "high", "critical":
		return "[URGENT] "
	default:
		return ""
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func newID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func dedupe(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
