package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/velvetdaemon/daemon-bot/internal/classifier"
	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"github.com/velvetdaemon/daemon-bot/internal/storage"
	"go.uber.org/zap"
)

type publisher interface {
	PublishCast(ctx context.Context, signerUUID, text, parentHash string, parentAuthorFID int64, idemKey string) (*models.Cast, error)
	React(ctx context.Context, signerUUID, kind, targetHash string) error
}

// Executor performs the side-effecting steps of a response: liking the
// source cast and publishing the reply, with deterministic idempotency
// keys so retried deliveries collapse into one action
type Executor struct {
	client     publisher
	signerUUID string
	journal    storage.Journal
	logger     *zap.Logger
}

func New(client publisher, signerUUID string, journal storage.Journal, logger *zap.Logger) *Executor {
	return &Executor{
		client:     client,
		signerUUID: signerUUID,
		journal:    journal,
		logger:     logger,
	}
}

// IdempotencyKey builds a short deterministic key from the intent and
// the cast hash, so repeat deliveries of the same event produce the
// same publish request
func IdempotencyKey(intent classifier.Intent, castHash string) string {
	hash := strings.TrimPrefix(strings.ToLower(castHash), "0x")
	if len(hash) > 14 {
		hash = hash[:14]
	}

	var prefix string
	switch intent {
	case classifier.IntentFixThis:
		prefix = "fix"
	case classifier.IntentDaemonAnalysis:
		prefix = "daemon"
	default:
		prefix = "reply"
	}
	return prefix + "-" + hash
}

// Like reacts to the source cast. Failures are logged and ignored: a
// missing like has no correctness impact.
func (e *Executor) Like(ctx context.Context, castHash string) {
	if err := e.client.React(ctx, e.signerUUID, "like", castHash); err != nil {
		e.logger.Warn("Failed to like cast",
			zap.Error(err),
			zap.String("cast_hash", castHash))
	}
}

// Reply publishes the response under the source cast and records it in
// the journal. A conflict from the platform means the exact same
// action was already performed, so it is reported as success with an
// empty reply hash.
func (e *Executor) Reply(ctx context.Context, text string, cast models.Cast, threadHash string, intent classifier.Intent) (string, error) {
	idemKey := IdempotencyKey(intent, cast.Hash)

	published, err := e.client.PublishCast(ctx, e.signerUUID, text, cast.Hash, cast.AuthorFID, idemKey)
	if err != nil {
		var apiErr *farcaster.APIError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			e.logger.Info("Reply already published, treating as success",
				zap.String("cast_hash", cast.Hash),
				zap.String("idem_key", idemKey))
			return "", nil
		}
		return "", fmt.Errorf("error publishing reply: %w", err)
	}

	record := &models.ReplyRecord{
		CastHash:   cast.Hash,
		ThreadHash: threadHash,
		Intent:     intent.String(),
		ReplyHash:  published.Hash,
	}
	if err := e.journal.RecordReply(ctx, record); err != nil {
		e.logger.Error("Failed to record reply in journal",
			zap.Error(err),
			zap.String("cast_hash", cast.Hash))
	}

	return published.Hash, nil
}
