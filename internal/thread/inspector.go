package thread

import (
	"context"
	"fmt"
	"time"

	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/storage"
	"go.uber.org/zap"
)

const (
	fetchTimeout = 5 * time.Second
	// how deep the conversation reply tree is walked when counting
	// bot participation
	conversationDepth = 5
)

type platform interface {
	CastByHash(ctx context.Context, hash string) (*farcaster.CastDetail, error)
	Conversation(ctx context.Context, hash string, replyDepth int, includeParents bool) (*farcaster.Conversation, error)
}

// ContinuationState is the inspector's verdict on whether a reply
// continues a conversation the bot is part of
type ContinuationState struct {
	ParentFromBot bool
	BotReplies    int
	// ThreadHash identifies the thread root, for journal records
	ThreadHash string
	// Context holds the conversation formatted as "@user: text" lines,
	// oldest first, for prompt building
	Context []string
}

// Inspector walks reply threads to compute depth, detect prior bot
// participation and enforce the per-thread reply cap
type Inspector struct {
	client        platform
	journal       storage.Journal
	botFID        int64
	maxBotReplies int
	logger        *zap.Logger
}

func NewInspector(client platform, journal storage.Journal, botFID int64, maxBotReplies int, logger *zap.Logger) *Inspector {
	return &Inspector{
		client:        client,
		journal:       journal,
		botFID:        botFID,
		maxBotReplies: maxBotReplies,
		logger:        logger,
	}
}

// Depth returns the number of ancestors plus one for the cast itself.
// On any fetch failure it returns 0, which disables depth capping for
// this request rather than blocking on API flakiness.
func (i *Inspector) Depth(ctx context.Context, castHash string) int {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	conv, err := i.client.Conversation(ctx, castHash, 1, true)
	if err != nil {
		i.logger.Warn("Failed to fetch conversation for depth check",
			zap.Error(err),
			zap.String("cast_hash", castHash))
		return 0
	}
	return len(conv.Ancestors) + 1
}

// BotReplied reports whether the bot already answered this cast. The
// local journal is checked first; the platform's reply lists are the
// authoritative fallback. Errors fail open (false): a possible
// duplicate is preferable to never replying, and duplicates are still
// absorbed by the publish conflict downstream.
func (i *Inspector) BotReplied(ctx context.Context, castHash string) bool {
	if replied, err := i.journal.BotRepliedTo(ctx, castHash); err == nil && replied {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	detail, err := i.client.CastByHash(ctx, castHash)
	if err != nil {
		i.logger.Warn("Failed to fetch cast for reply check",
			zap.Error(err),
			zap.String("cast_hash", castHash))
		return false
	}
	for _, reply := range detail.Replies {
		if reply.AuthorFID == i.botFID {
			return true
		}
	}

	conv, err := i.client.Conversation(ctx, castHash, conversationDepth, false)
	if err != nil {
		i.logger.Warn("Failed to fetch conversation for reply check",
			zap.Error(err),
			zap.String("cast_hash", castHash))
		return false
	}
	for _, cast := range conv.Replies {
		if cast.AuthorFID == i.botFID {
			return true
		}
	}
	return false
}

// Continuation checks whether a reply continues a thread the bot
// started a turn in. The parent must be authored by the bot; if so the
// conversation is walked once to count the bot's turns against the
// per-thread cap (user, bot, user, bot, user, bot, then stop).
func (i *Inspector) Continuation(ctx context.Context, parentHash string) ContinuationState {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	parent, err := i.client.CastByHash(ctx, parentHash)
	if err != nil {
		i.logger.Warn("Failed to fetch parent cast for continuation check",
			zap.Error(err),
			zap.String("parent_hash", parentHash))
		return ContinuationState{}
	}

	if parent.Cast.AuthorFID != i.botFID {
		return ContinuationState{}
	}

	conv, err := i.client.Conversation(ctx, parentHash, conversationDepth, true)
	if err != nil {
		i.logger.Warn("Failed to fetch conversation for continuation check",
			zap.Error(err),
			zap.String("parent_hash", parentHash))
		// the parent itself is a bot turn
		return ContinuationState{ParentFromBot: true, BotReplies: 1, ThreadHash: parentHash}
	}

	count := 0
	all := conv.AllCasts()
	context := make([]string, 0, len(all))
	for _, cast := range all {
		if cast.AuthorFID == i.botFID {
			count++
		}
		context = append(context, fmt.Sprintf("@%s: %s", cast.AuthorUsername, cast.Text))
	}

	// The journal may know turns the API has not indexed yet
	root := RootHash(conv)
	if recorded, err := i.journal.RepliesInThread(ctx, root); err == nil && recorded > count {
		count = recorded
	}

	return ContinuationState{
		ParentFromBot: true,
		BotReplies:    count,
		ThreadHash:    root,
		Context:       context,
	}
}

// AtCap reports whether the bot has used up its turns in the thread
func (i *Inspector) AtCap(state ContinuationState) bool {
	return state.BotReplies >= i.maxBotReplies
}

// RootHash returns the hash identifying the thread a cast belongs to:
// the first ancestor when there is one, else the cast itself
func RootHash(conv *farcaster.Conversation) string {
	if len(conv.Ancestors) > 0 {
		return conv.Ancestors[0].Hash
	}
	return conv.Cast.Hash
}
