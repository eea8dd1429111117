package contextmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/commandcenter/commandcenter/pkg/cache"
	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/commandcenter/commandcenter/pkg/kb"
	"github.com/commandcenter/commandcenter/pkg/store"
	"github.com/google/uuid"
)

// shellReserveTokens is carved out of every budget for the query
// prompt shell itself (spec.md §4.1 bundle assembly step 1).
const shellReserveTokens = 200

// contextFileBudgetRatio caps the context-files section at 40% of a
// class's total budget (spec.md §4.1 step 2).
const contextFileBudgetRatio = 0.40

// userPrefsMaxTokens caps the user-preferences section regardless of
// remaining budget (spec.md §4.1 step 3).
const userPrefsMaxTokens = 200

// Bundle is the assembled, budget-bound context for one query (spec.md
// §4.1 ContextBundle).
type Bundle struct {
	QueryType    config.QueryType `json:"query_type"`
	Confidence   float64          `json:"classification_confidence"`
	System       string           `json:"system"`
	User         string           `json:"user"`
	Conversation string           `json:"conversation"`
	KB           string           `json:"kb"`
	TotalTokens  int              `json:"total_tokens"`
	CacheHit     bool             `json:"-"` // never serialized into the cached payload itself
}

// Manager assembles ContextBundles (spec.md §4.1).
type Manager struct {
	classifier *Classifier
	kb         *kb.Service
	messages   *store.MessageStore
	prefs      *store.PreferenceStore
	cache      cache.Cache
	budgets    map[config.QueryType]config.Budget
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// New constructs a Manager.
func New(classifier *Classifier, kbSvc *kb.Service, messages *store.MessageStore, prefs *store.PreferenceStore, c cache.Cache, budgets map[config.QueryType]config.Budget, cacheTTL time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{classifier: classifier, kb: kbSvc, messages: messages, prefs: prefs, cache: c, budgets: budgets, cacheTTL: cacheTTL, logger: logger}
}

// Classify exposes classify(query) as a public operation (spec.md
// §4.1).
func (m *Manager) Classify(query string) Classification {
	return m.classifier.Classify(query)
}

// BundleFor implements bundle(query, session_id?, user_id?) (spec.md
// §4.1). sessionID and userID may be the zero uuid.UUID / empty string
// respectively.
func (m *Manager) BundleFor(ctx context.Context, query string, sessionID uuid.UUID, userID string) (Bundle, error) {
	cls := m.classifier.Classify(query)
	key := CacheKey(cls.Type, query, sessionID.String(), userID, m.kb.KBVersion())

	if cached, ok := m.tryCache(ctx, key); ok {
		cached.CacheHit = true
		return cached, nil
	}

	bundle, err := m.assemble(ctx, cls, query, sessionID, userID)
	if err != nil {
		return Bundle{}, err
	}

	if payload, err := json.Marshal(bundle); err == nil {
		m.cache.Set(ctx, key, string(payload), m.cacheTTL)
	}
	bundle.CacheHit = false
	return bundle, nil
}

func (m *Manager) tryCache(ctx context.Context, key string) (Bundle, bool) {
	raw, ok := m.cache.Get(ctx, key)
	if !ok {
		return Bundle{}, false
	}
	var b Bundle
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return Bundle{}, false
	}
	return b, true
}

func (m *Manager) assemble(ctx context.Context, cls Classification, query string, sessionID uuid.UUID, userID string) (Bundle, error) {
	budget := m.budgets[cls.Type]
	remaining := budget.TotalTokens - shellReserveTokens
	if remaining < 0 {
		remaining = 0
	}

	system, used := m.buildSystemSection(ctx, int(float64(budget.TotalTokens)*contextFileBudgetRatio), remaining)
	remaining -= used

	user, used := m.buildUserSection(ctx, userID, remaining)
	remaining -= used

	conversation, used := m.buildConversationSection(ctx, sessionID, budget.ConvTurns, remaining)
	remaining -= used

	var kbSection string
	if cls.Type != config.QueryTypeGeneral {
		kbSection, used = m.buildKBSection(ctx, query, budget.KBDocs, remaining)
		remaining -= used
	}

	bundle := Bundle{
		QueryType:    cls.Type,
		Confidence:   cls.Confidence,
		System:       system,
		User:         user,
		Conversation: conversation,
		KB:           kbSection,
	}
	bundle.TotalTokens = estimateTokens(bundle.System) + estimateTokens(bundle.User) +
		estimateTokens(bundle.Conversation) + estimateTokens(bundle.KB)

	m.enforceOverBudget(&bundle, budget.TotalTokens-shellReserveTokens)
	return bundle, nil
}

// enforceOverBudget is the step-6 safety net: if the assembled bundle
// still exceeds budget (e.g. a KB chunk batch overshot its remaining
// allowance), drop whole sections in priority order kb -> conv -> user
// -> system until it fits (spec.md §4.1 step 6).
func (m *Manager) enforceOverBudget(b *Bundle, limit int) {
	if limit < 0 {
		limit = 0
	}
	drop := []*string{&b.KB, &b.Conversation, &b.User, &b.System}
	for _, section := range drop {
		total := estimateTokens(b.System) + estimateTokens(b.User) + estimateTokens(b.Conversation) + estimateTokens(b.KB)
		if total <= limit {
			break
		}
		*section = ""
	}
	b.TotalTokens = estimateTokens(b.System) + estimateTokens(b.User) + estimateTokens(b.Conversation) + estimateTokens(b.KB)
}

func (m *Manager) buildSystemSection(ctx context.Context, capTokens, remaining int) (string, int) {
	if capTokens > remaining {
		capTokens = remaining
	}
	if capTokens <= 0 {
		return "", 0
	}

	docs, err := m.kb.AlwaysOnDocuments(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "context files unavailable, yielding empty section", "error", err)
		return "", 0
	}

	var sb strings.Builder
	used := 0
	for _, d := range docs {
		piece := fmt.Sprintf("### %s\n%s\n", d.DocumentTitle, d.ChunkText)
		toks := estimateTokens(piece)
		if used+toks > capTokens {
			continue
		}
		sb.WriteString(piece)
		used += toks
	}
	return sb.String(), used
}

func (m *Manager) buildUserSection(ctx context.Context, userID string, remaining int) (string, int) {
	capTokens := userPrefsMaxTokens
	if capTokens > remaining {
		capTokens = remaining
	}
	if capTokens <= 0 || userID == "" {
		return "", 0
	}

	pref, err := m.prefs.Get(ctx, userID)
	if err != nil {
		m.logger.WarnContext(ctx, "user preferences unavailable, yielding empty section", "error", err)
		return "", 0
	}
	text := pref.Summary
	if estimateTokens(text) > capTokens {
		text = text[:min(len(text), tokensToChars(capTokens))]
	}
	return text, estimateTokens(text)
}

func (m *Manager) buildConversationSection(ctx context.Context, sessionID uuid.UUID, turns, remaining int) (string, int) {
	if remaining <= 0 || turns <= 0 || sessionID == uuid.Nil {
		return "", 0
	}

	msgs, err := m.messages.Recent(ctx, sessionID, turns*2)
	if err != nil {
		m.logger.WarnContext(ctx, "conversation history unavailable, yielding empty section", "error", err)
		return "", 0
	}

	type turn struct{ user, assistant store.Message }
	var built []turn
	var cur turn
	haveUser := false
	for _, msg := range msgs {
		switch msg.Role {
		case store.MessageRoleUser:
			if haveUser {
				built = append(built, cur)
				cur = turn{}
			}
			cur.user = msg
			haveUser = true
		case store.MessageRoleAssistant:
			cur.assistant = msg
			if haveUser {
				built = append(built, cur)
				cur = turn{}
				haveUser = false
			}
		}
	}
	if haveUser {
		built = append(built, cur)
	}

	for len(built) > 0 {
		var sb strings.Builder
		for _, t := range built {
			if t.user.Content != "" {
				fmt.Fprintf(&sb, "User: %s\n", t.user.Content)
			}
			if t.assistant.Content != "" {
				fmt.Fprintf(&sb, "Assistant: %s\n", t.assistant.Content)
			}
		}
		text := sb.String()
		if estimateTokens(text) <= remaining {
			return text, estimateTokens(text)
		}
		built = built[1:] // drop oldest turn and retry
	}
	return "", 0
}

func (m *Manager) buildKBSection(ctx context.Context, query string, docCount, remaining int) (string, int) {
	if remaining <= 0 {
		return "", 0
	}

	topK := docCount * 2
	results, err := m.kb.Search(ctx, query, topK, 0)
	if err != nil {
		m.logger.WarnContext(ctx, "kb search unavailable, yielding empty section", "error", err)
		return "", 0
	}

	var sb strings.Builder
	used := 0
	for _, r := range results {
		piece := fmt.Sprintf("[%s / %s] (similarity %.2f)\n%s\n", r.DocumentTitle, r.Folder, r.Similarity, r.ChunkText)
		toks := estimateTokens(piece)
		if used+toks > remaining {
			continue
		}
		sb.WriteString(piece)
		used += toks
	}
	return sb.String(), used
}

// Format renders a Bundle into a single prompt-ready string (spec.md
// §4.1 format(bundle)).
func Format(b Bundle) string {
	var sb strings.Builder
	if b.System != "" {
		sb.WriteString("## Reference documents\n")
		sb.WriteString(b.System)
		sb.WriteString("\n")
	}
	if b.User != "" {
		sb.WriteString("## User preferences\n")
		sb.WriteString(b.User)
		sb.WriteString("\n")
	}
	if b.Conversation != "" {
		sb.WriteString("## Recent conversation\n")
		sb.WriteString(b.Conversation)
		sb.WriteString("\n")
	}
	if b.KB != "" {
		sb.WriteString("## Relevant knowledge base excerpts\n")
		sb.WriteString(b.KB)
		sb.WriteString("\n")
	}
	return sb.String()
}
