package storage

import (
	"context"

	"github.com/velvetdaemon/daemon-bot/internal/models"
)

// Journal records every reply the bot posts. It serves as the audit
// trail and as a local fast path for "has the bot already replied
// here"; the platform API remains the authoritative source.
type Journal interface {
	RecordReply(ctx context.Context, record *models.ReplyRecord) error
	BotRepliedTo(ctx context.Context, castHash string) (bool, error)
	RepliesInThread(ctx context.Context, threadHash string) (int, error)
	Close() error
}
