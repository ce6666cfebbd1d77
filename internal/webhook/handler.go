package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/velvetdaemon/daemon-bot/internal/admission"
	"github.com/velvetdaemon/daemon-bot/internal/classifier"
	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"github.com/velvetdaemon/daemon-bot/internal/thread"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

type reputationGate interface {
	Check(ctx context.Context, fid int64) (allowed bool, score *float64)
}

type threadInspector interface {
	Depth(ctx context.Context, castHash string) int
	BotReplied(ctx context.Context, castHash string) bool
	Continuation(ctx context.Context, parentHash string) thread.ContinuationState
	AtCap(state thread.ContinuationState) bool
}

type responseComposer interface {
	ComposeReply(ctx context.Context, cast models.Cast, threadContext []string) (string, error)
	ComposeFixThis(ctx context.Context, cast models.Cast) (string, error)
	ComposeDaemonAnalysis(ctx context.Context, cast models.Cast) (string, error)
}

type actionExecutor interface {
	Like(ctx context.Context, castHash string)
	Reply(ctx context.Context, text string, cast models.Cast, threadHash string, intent classifier.Intent) (string, error)
}

// Handler is the webhook orchestrator: it authenticates inbound
// events, runs them through the admission pipeline and posts replies
type Handler struct {
	secret     string
	maxDepth   int
	admission  *admission.Controller
	classifier *classifier.Classifier
	reputation reputationGate
	inspector  threadInspector
	composer   responseComposer
	executor   actionExecutor
	logger     *zap.Logger
}

func NewHandler(
	secret string,
	maxDepth int,
	ctrl *admission.Controller,
	clf *classifier.Classifier,
	gate reputationGate,
	inspector threadInspector,
	composer responseComposer,
	executor actionExecutor,
	logger *zap.Logger,
) *Handler {
	if secret == "" {
		logger.Warn("No webhook secret configured, signature verification is disabled")
	}
	return &Handler{
		secret:     secret,
		maxDepth:   maxDepth,
		admission:  ctrl,
		classifier: clf,
		reputation: gate,
		inspector:  inspector,
		composer:   composer,
		executor:   executor,
		logger:     logger,
	}
}

// Routes mounts the webhook endpoints on a chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/webhook", h.handleHealth)
	r.Post("/webhook", h.handleEvent)
	return r
}

type webhookResponse struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	ReplyHash string `json:"reply_hash,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// skip is a business decision not to respond. Always HTTP 200: webhook
// senders retry on non-2xx, and retrying a legitimate skip is wasteful
// and can race with in-flight processing.
func skip(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Reason: reason})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, webhookResponse{Status: "ok", Reason: "daemon-bot webhook"})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	// panic safety net: clear all locks rather than risk permanently
	// deadlocking a cast hash, then answer with a generic 500 that
	// leaks no internals
	defer func() {
		if v := recover(); v != nil {
			h.admission.UnlockAll()
			h.logger.Error("Panic in webhook handler", zap.Any("panic", v))
			writeJSON(w, http.StatusInternalServerError, webhookResponse{
				Status: "error",
				Reason: "internal error",
			})
		}
	}()

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, webhookResponse{
			Status: "error",
			Reason: "internal error",
		})
		return
	}

	if h.secret != "" {
		if !VerifySignature(rawBody, r.Header.Get("X-Neynar-Signature"), h.secret) {
			h.logger.Warn("Webhook signature verification failed")
			writeJSON(w, http.StatusUnauthorized, webhookResponse{
				Status: "error",
				Reason: "invalid signature",
			})
			return
		}
	}

	event, err := farcaster.ParseWebhookEvent(rawBody)
	if err != nil {
		h.logger.Warn("Failed to parse webhook event", zap.Error(err))
		skip(w, "invalid_payload")
		return
	}

	if event.Type != farcaster.EventCastCreated {
		skip(w, "ignored_event_type")
		return
	}

	h.processCast(r.Context(), w, event)
}

func (h *Handler) processCast(ctx context.Context, w http.ResponseWriter, event *models.InboundEvent) {
	cast := event.Cast
	log := h.logger.With(
		zap.String("cast_hash", cast.Hash),
		zap.Int64("author_fid", cast.AuthorFID))

	// never respond to our own casts, whatever the text says
	if h.classifier.IsSelfCast(cast) {
		skip(w, "self_cast")
		return
	}

	// dedup first, then lock: a request can fail both, and this order
	// keeps the overlap deterministic
	if h.admission.WasRecentlyProcessed(cast.Hash, event.ID) {
		skip(w, "duplicate")
		return
	}

	if !h.admission.TryLock(cast.Hash) {
		skip(w, "already_processing")
		return
	}
	completed := false
	defer func() {
		if !completed {
			h.admission.Unlock(cast.Hash)
		}
	}()

	if h.admission.ShouldStop() {
		log.Warn("Response suppressed by rate governor")
		writeJSON(w, http.StatusOK, webhookResponse{Status: "stopped", Reason: "rate_limited"})
		return
	}

	if h.maxDepth > 0 {
		if depth := h.inspector.Depth(ctx, cast.Hash); depth > h.maxDepth {
			skip(w, "thread_too_deep")
			return
		}
	}

	var continuation thread.ContinuationState
	if cast.IsReply() {
		continuation = h.inspector.Continuation(ctx, cast.ParentHash)
	}
	continuationOK := continuation.ParentFromBot && !h.inspector.AtCap(continuation)

	intent := h.classifier.Classify(cast, continuationOK)
	if intent == classifier.IntentNone {
		if h.classifier.AmbiguousFixThis(cast) {
			// "fix this" with no target: do not guess the wrong cast
			log.Info("Ignoring ambiguous fix-this request with no parent")
			skip(w, "ambiguous_fix_this")
			return
		}
		if continuation.ParentFromBot && h.inspector.AtCap(continuation) {
			skip(w, "max_replies_reached")
			return
		}
		skip(w, "no_intent")
		return
	}

	// a user already in an ongoing conversation passed the gate when
	// the thread started
	if intent != classifier.IntentContinuation {
		allowed, score := h.reputation.Check(ctx, cast.AuthorFID)
		if !allowed {
			log.Info("Rejected by reputation gate",
				zap.Float64p("score", score))
			skip(w, "low_reputation")
			return
		}
	}

	if h.inspector.BotReplied(ctx, cast.Hash) {
		skip(w, "already_replied")
		return
	}

	h.executor.Like(ctx, cast.Hash)

	text, err := h.composeFor(ctx, intent, cast, continuation)
	if err != nil {
		log.Error("Failed to compose response",
			zap.Error(err),
			zap.String("intent", intent.String()))
		writeJSON(w, http.StatusInternalServerError, webhookResponse{
			Status: "error",
			Reason: "generation failed",
		})
		return
	}

	threadHash := continuation.ThreadHash
	if threadHash == "" {
		threadHash = cast.Hash
	}

	replyHash, err := h.executor.Reply(ctx, text, cast, threadHash, intent)
	if err != nil {
		log.Error("Failed to publish reply", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, webhookResponse{
			Status: "error",
			Reason: "publish failed",
		})
		return
	}

	h.admission.RecordResponse()
	h.admission.MarkProcessed(cast.Hash, event.ID)
	completed = true

	log.Info("Posted reply",
		zap.String("intent", intent.String()),
		zap.String("reply_hash", replyHash))
	writeJSON(w, http.StatusOK, webhookResponse{Status: "ok", ReplyHash: replyHash})
}

func (h *Handler) composeFor(ctx context.Context, intent classifier.Intent, cast models.Cast, continuation thread.ContinuationState) (string, error) {
	switch intent {
	case classifier.IntentFixThis:
		return h.composer.ComposeFixThis(ctx, cast)
	case classifier.IntentDaemonAnalysis:
		return h.composer.ComposeDaemonAnalysis(ctx, cast)
	case classifier.IntentContinuation:
		return h.composer.ComposeReply(ctx, cast, continuation.Context)
	default:
		return h.composer.ComposeReply(ctx, cast, nil)
	}
}
