package classifier

import (
	"strings"

	"github.com/velvetdaemon/daemon-bot/internal/models"
)

// Intent is the response decision for an inbound cast
type Intent int

const (
	IntentNone Intent = iota
	IntentFixThis
	IntentDaemonAnalysis
	IntentMention
	IntentContinuation
)

func (i Intent) String() string {
	switch i {
	case IntentFixThis:
		return "fix_this"
	case IntentDaemonAnalysis:
		return "daemon_analysis"
	case IntentMention:
		return "mention"
	case IntentContinuation:
		return "thread_continuation"
	default:
		return "none"
	}
}

// Classifier decides how the bot should respond to a cast. It is a
// pure function of the cast plus the thread signals computed upstream;
// it performs no I/O.
type Classifier struct {
	botFID  int64
	handles []string
}

// New creates a classifier for the bot identity. Usernames are the
// accepted handle aliases, matched case-insensitively.
func New(botFID int64, usernames []string) *Classifier {
	handles := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
		if u != "" {
			handles = append(handles, u)
		}
	}
	return &Classifier{botFID: botFID, handles: handles}
}

// IsSelfCast reports whether the cast was authored by the bot itself,
// by FID or by any accepted username alias
func (c *Classifier) IsSelfCast(cast models.Cast) bool {
	if cast.AuthorFID == c.botFID {
		return true
	}
	author := strings.ToLower(cast.AuthorUsername)
	for _, h := range c.handles {
		if author == h {
			return true
		}
	}
	return false
}

// IsMentioned reports whether the cast references the bot, either in
// the structured mention list or as an @-handle in the text
func (c *Classifier) IsMentioned(cast models.Cast) bool {
	for _, fid := range cast.MentionedFIDs {
		if fid == c.botFID {
			return true
		}
	}
	text := strings.ToLower(cast.Text)
	for _, h := range c.handles {
		if strings.Contains(text, "@"+h) {
			return true
		}
	}
	return false
}

func isFixThisRequest(text string) bool {
	return strings.Contains(strings.ToLower(text), "fix this")
}

func isDaemonRequest(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "show me my daemon") ||
		strings.Contains(lower, "show me my deamon")
}

// AmbiguousFixThis reports whether the cast asks the bot to fix
// something without giving it a target. Guessing the wrong cast is
// worse than staying silent, so these produce no response.
func (c *Classifier) AmbiguousFixThis(cast models.Cast) bool {
	return c.IsMentioned(cast) && isFixThisRequest(cast.Text) && !cast.IsReply()
}

// Classify selects the response intent for a cast. continuationOK is
// the thread inspector's verdict that the cast continues a thread the
// bot started and the per-thread reply cap has room. First match wins:
// fix-this > daemon-analysis > mention > continuation > none.
// Self-casts must be filtered before this is called.
func (c *Classifier) Classify(cast models.Cast, continuationOK bool) Intent {
	mentioned := c.IsMentioned(cast)

	switch {
	case mentioned && isFixThisRequest(cast.Text):
		if cast.IsReply() {
			return IntentFixThis
		}
		// mentioned + "fix this" with no parent: ambiguous target
		return IntentNone
	case mentioned && isDaemonRequest(cast.Text):
		return IntentDaemonAnalysis
	case mentioned:
		return IntentMention
	case continuationOK:
		return IntentContinuation
	}
	return IntentNone
}
