package thread

import (
	"context"
	"fmt"
	"testing"

	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"github.com/velvetdaemon/daemon-bot/internal/storage"
	"go.uber.org/zap"
)

const botFID = int64(777)

type stubPlatform struct {
	casts         map[string]*farcaster.CastDetail
	conversations map[string]*farcaster.Conversation
	err           error
}

func (s *stubPlatform) CastByHash(ctx context.Context, hash string) (*farcaster.CastDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if detail, ok := s.casts[hash]; ok {
		return detail, nil
	}
	return nil, &farcaster.APIError{StatusCode: 404, Message: "not found"}
}

func (s *stubPlatform) Conversation(ctx context.Context, hash string, replyDepth int, includeParents bool) (*farcaster.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	if conv, ok := s.conversations[hash]; ok {
		return conv, nil
	}
	return nil, &farcaster.APIError{StatusCode: 404, Message: "not found"}
}

func newInspector(p *stubPlatform, journal storage.Journal) *Inspector {
	if journal == nil {
		journal = storage.NewMemoryJournal()
	}
	return NewInspector(p, journal, botFID, 3, zap.NewNop())
}

func TestDepthCountsAncestors(t *testing.T) {
	p := &stubPlatform{conversations: map[string]*farcaster.Conversation{
		"0xleaf": {
			Ancestors: []models.Cast{{Hash: "0xroot"}, {Hash: "0xmid"}},
			Cast:      models.Cast{Hash: "0xleaf"},
		},
	}}

	if got := newInspector(p, nil).Depth(context.Background(), "0xleaf"); got != 3 {
		t.Fatalf("Depth = %d, want 3", got)
	}
}

func TestDepthFailsOpen(t *testing.T) {
	p := &stubPlatform{err: fmt.Errorf("timeout")}

	if got := newInspector(p, nil).Depth(context.Background(), "0xleaf"); got != 0 {
		t.Fatalf("Depth on error = %d, want 0 (fail-open)", got)
	}
}

func TestBotRepliedViaDirectReplies(t *testing.T) {
	p := &stubPlatform{casts: map[string]*farcaster.CastDetail{
		"0xcast": {
			Cast:    models.Cast{Hash: "0xcast"},
			Replies: []models.Cast{{AuthorFID: 1}, {AuthorFID: botFID}},
		},
	}}

	if !newInspector(p, nil).BotReplied(context.Background(), "0xcast") {
		t.Fatalf("should detect bot reply in direct replies")
	}
}

func TestBotRepliedViaJournalFastPath(t *testing.T) {
	journal := storage.NewMemoryJournal()
	journal.RecordReply(context.Background(), &models.ReplyRecord{CastHash: "0xcast", ReplyHash: "0xr"})

	// platform errors on everything: only the journal can answer
	p := &stubPlatform{err: fmt.Errorf("down")}

	if !newInspector(p, journal).BotReplied(context.Background(), "0xcast") {
		t.Fatalf("journal fast path should detect the prior reply")
	}
}

func TestBotRepliedFailsOpen(t *testing.T) {
	p := &stubPlatform{err: fmt.Errorf("down")}

	if newInspector(p, nil).BotReplied(context.Background(), "0xcast") {
		t.Fatalf("errors should fail open to false")
	}
}

func TestContinuationRequiresBotParent(t *testing.T) {
	p := &stubPlatform{casts: map[string]*farcaster.CastDetail{
		"0xparent": {Cast: models.Cast{Hash: "0xparent", AuthorFID: 42}},
	}}

	state := newInspector(p, nil).Continuation(context.Background(), "0xparent")
	if state.ParentFromBot {
		t.Fatalf("parent by another author must not continue")
	}
}

func TestContinuationCountsBotTurns(t *testing.T) {
	p := &stubPlatform{
		casts: map[string]*farcaster.CastDetail{
			"0xparent": {Cast: models.Cast{Hash: "0xparent", AuthorFID: botFID}},
		},
		conversations: map[string]*farcaster.Conversation{
			"0xparent": {
				Ancestors: []models.Cast{
					{Hash: "0xroot", AuthorFID: 42, AuthorUsername: "alice", Text: "hello"},
					{Hash: "0xb1", AuthorFID: botFID, AuthorUsername: "daemon", Text: "hi"},
					{Hash: "0xu2", AuthorFID: 42, AuthorUsername: "alice", Text: "more"},
					{Hash: "0xb2", AuthorFID: botFID, AuthorUsername: "daemon", Text: "sure"},
				},
				Cast: models.Cast{Hash: "0xparent", AuthorFID: botFID, AuthorUsername: "daemon", Text: "third"},
			},
		},
	}

	inspector := newInspector(p, nil)
	state := inspector.Continuation(context.Background(), "0xparent")

	if !state.ParentFromBot {
		t.Fatalf("parent authored by bot should continue")
	}
	if state.BotReplies != 3 {
		t.Fatalf("BotReplies = %d, want 3", state.BotReplies)
	}
	if !inspector.AtCap(state) {
		t.Fatalf("three bot turns should hit the cap")
	}
	if state.ThreadHash != "0xroot" {
		t.Fatalf("ThreadHash = %s, want the thread root", state.ThreadHash)
	}
	if len(state.Context) != 5 || state.Context[0] != "@alice: hello" {
		t.Fatalf("unexpected context lines: %v", state.Context)
	}
}

func TestContinuationUsesJournalCount(t *testing.T) {
	journal := storage.NewMemoryJournal()
	for i := 0; i < 3; i++ {
		journal.RecordReply(context.Background(), &models.ReplyRecord{
			CastHash:   fmt.Sprintf("0xc%d", i),
			ThreadHash: "0xroot",
			ReplyHash:  fmt.Sprintf("0xr%d", i),
		})
	}

	p := &stubPlatform{
		casts: map[string]*farcaster.CastDetail{
			"0xparent": {Cast: models.Cast{Hash: "0xparent", AuthorFID: botFID}},
		},
		conversations: map[string]*farcaster.Conversation{
			"0xparent": {
				Ancestors: []models.Cast{{Hash: "0xroot", AuthorFID: 42}},
				Cast:      models.Cast{Hash: "0xparent", AuthorFID: botFID},
			},
		},
	}

	inspector := newInspector(p, journal)
	state := inspector.Continuation(context.Background(), "0xparent")

	if state.BotReplies != 3 {
		t.Fatalf("journal count should win when higher: got %d", state.BotReplies)
	}
	if !inspector.AtCap(state) {
		t.Fatalf("journal-backed count should enforce the cap")
	}
}
