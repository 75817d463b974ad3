package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/baliwise/ragcore/internal/collective"
	"github.com/baliwise/ragcore/internal/sessions"
	"github.com/baliwise/ragcore/pkg/models"
)

// AnonymousUser is the sentinel identity every empty or "anonymous" user
// id is normalized to at the Orchestrator boundary.
const AnonymousUser = "anonymous"

// OrchestratorConfig bounds the per-user memory layer.
type OrchestratorConfig struct {
	// MaxConcurrentReads bounds simultaneous GetUserContext calls.
	MaxConcurrentReads int64

	// WriteLockTimeout bounds how long ProcessConversation waits for the
	// per-user write lock.
	WriteLockTimeout time.Duration

	// MaxCollectiveFacts caps how many promoted facts are attached to a
	// user context.
	MaxCollectiveFacts int
}

// FactExtractor produces candidate facts from a single conversation turn.
// cmd/ragcored wires the heuristic extractor from internal/tools/facts;
// it is supplied here as a callable so Orchestrator stays agnostic of how
// extraction happens.
type FactExtractor func(ctx context.Context, userID, userMessage, aiResponse string) ([]models.ExtractedFact, error)

// Orchestrator assembles per-query user context and persists facts
// learned from completed turns.
type Orchestrator struct {
	users      UserStore
	sessions   sessions.Store
	collective *collective.Service
	extractor  FactExtractor
	cfg        OrchestratorConfig

	readSem   *semaphore.Weighted
	writeLock *sessions.LockManager

	degraded atomic.Bool
}

// NewOrchestrator creates an Orchestrator. A nil users store puts the
// orchestrator into degraded mode immediately.
func NewOrchestrator(users UserStore, sessionStore sessions.Store, collectiveSvc *collective.Service, extractor FactExtractor, cfg OrchestratorConfig) *Orchestrator {
	maxReads := cfg.MaxConcurrentReads
	if maxReads <= 0 {
		maxReads = 10
	}
	writeTimeout := cfg.WriteLockTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	o := &Orchestrator{
		users:      users,
		sessions:   sessionStore,
		collective: collectiveSvc,
		extractor:  extractor,
		cfg:        cfg,
		readSem:    semaphore.NewWeighted(maxReads),
		writeLock:  sessions.NewLockManager(writeTimeout),
	}
	if users == nil {
		o.degraded.Store(true)
	}
	return o
}

func (o *Orchestrator) normalizeUser(userID string) string {
	if userID == "" || userID == AnonymousUser {
		return AnonymousUser
	}
	return userID
}

// GetUserContext assembles {profile, history, facts, collective_facts,
// timeline_summary} for userID; KGEntities is left empty here. Anonymous users and
// degraded-mode orchestrators both return an empty context without
// erring. The conversation history is fetched with one composite query
// via sessions.Store.GetHistory (filtered by sessionID when supplied),
// never one query per message.
func (o *Orchestrator) GetUserContext(ctx context.Context, userID, query, sessionID string) (*models.UserContext, error) {
	userID = o.normalizeUser(userID)
	out := &models.UserContext{UserID: userID}
	if userID == AnonymousUser || o.degraded.Load() {
		return out, nil
	}

	if err := o.readSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.readSem.Release(1)

	profile, err := o.users.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("memory: get profile failed", "user_id", userID, "error", err)
	} else {
		out.Profile = profile
	}

	if sessionID != "" && o.sessions != nil {
		history, err := o.sessions.GetHistory(ctx, sessionID, 20)
		if err != nil {
			slog.Warn("memory: get history failed", "session_id", sessionID, "error", err)
		} else {
			out.History = make([]models.Message, len(history))
			for i, m := range history {
				out.History[i] = *m
			}
		}
	}

	facts, err := o.users.ListFacts(ctx, userID)
	if err != nil {
		slog.Warn("memory: list facts failed", "user_id", userID, "error", err)
	} else {
		out.Facts = facts
	}

	if o.collective != nil {
		category := ""
		limit := o.cfg.MaxCollectiveFacts
		if limit <= 0 {
			limit = 10
		}
		if collectiveFacts, err := o.collective.GetCollectiveContext(ctx, category, limit); err != nil {
			slog.Warn("memory: get collective context failed", "error", err)
		} else {
			out.CollectiveFacts = collectiveFacts
		}
	}

	if summary, err := o.users.TimelineSummary(ctx, userID, 10); err != nil {
		slog.Warn("memory: timeline summary failed", "user_id", userID, "error", err)
	} else {
		out.TimelineSummary = summary
	}

	_ = query // reserved: query text is not currently used to filter context
	return out, nil
}

// ProcessConversation extracts candidate facts from one completed turn,
// deduplicates and saves them, increments the user's conversation
// counter, and records an episodic timeline event. The whole sequence is
// guarded by a per-user write lock with a timeout, and failure here is
// non-fatal: it's logged and an empty, success=false result is returned
// rather than propagated to the caller.
func (o *Orchestrator) ProcessConversation(ctx context.Context, userID, userMessage, aiResponse string) (*models.ProcessResult, error) {
	started := time.Now()
	userID = o.normalizeUser(userID)
	if userID == AnonymousUser || o.degraded.Load() || o.extractor == nil {
		return &models.ProcessResult{}, nil
	}

	release, err := o.writeLock.Acquire(ctx, userID, "memory-orchestrator", o.cfg.WriteLockTimeout)
	if err != nil {
		slog.Warn("memory: process conversation lock timeout", "user_id", userID, "error", err)
		return &models.ProcessResult{}, nil
	}
	defer release()

	extracted, err := o.extractor(ctx, userID, userMessage, aiResponse)
	if err != nil {
		slog.Warn("memory: fact extraction failed", "user_id", userID, "error", err)
		return &models.ProcessResult{}, nil
	}

	saved := 0
	for _, fact := range extracted {
		added, err := o.users.AddFact(ctx, userID, fact)
		if err != nil {
			slog.Warn("memory: add fact failed", "user_id", userID, "error", err)
			continue
		}
		if added {
			saved++
		}
	}

	if err := o.users.IncrementConversationCount(ctx, userID); err != nil {
		slog.Warn("memory: increment conversation count failed", "user_id", userID, "error", err)
	}

	summary := summarizeTurn(userMessage, aiResponse)
	if err := o.users.AddTimelineEvent(ctx, userID, summary); err != nil {
		slog.Warn("memory: add timeline event failed", "user_id", userID, "error", err)
	}

	return &models.ProcessResult{
		FactsExtracted:   len(extracted),
		FactsSaved:       saved,
		ProcessingTimeMS: float64(time.Since(started).Microseconds()) / 1000.0,
		Success:          true,
	}, nil
}

// IsDegraded reports whether the orchestrator is operating without a
// usable backend.
func (o *Orchestrator) IsDegraded() bool { return o.degraded.Load() }

const maxTurnSummaryLen = 200

// summarizeTurn produces a short episodic summary of one turn by
// truncating the user message and the answer; no LLM call is made.
func summarizeTurn(userMessage, aiResponse string) string {
	s := fmt.Sprintf("User asked: %s", truncate(userMessage, maxTurnSummaryLen))
	if aiResponse != "" {
		s += fmt.Sprintf(" | Answered: %s", truncate(aiResponse, maxTurnSummaryLen))
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
