package executor

import (
	"context"
	"net/http"
	"testing"

	"github.com/velvetdaemon/daemon-bot/internal/classifier"
	"github.com/velvetdaemon/daemon-bot/internal/farcaster"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"github.com/velvetdaemon/daemon-bot/internal/storage"
	"go.uber.org/zap"
)

type stubPublisher struct {
	publishErr error
	published  []string
	idemKeys   []string
	reactErr   error
	reacted    []string
}

func (s *stubPublisher) PublishCast(ctx context.Context, signer, text, parentHash string, parentAuthorFID int64, idemKey string) (*models.Cast, error) {
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	s.published = append(s.published, text)
	s.idemKeys = append(s.idemKeys, idemKey)
	return &models.Cast{Hash: "0xreply"}, nil
}

func (s *stubPublisher) React(ctx context.Context, signer, kind, target string) error {
	if s.reactErr != nil {
		return s.reactErr
	}
	s.reacted = append(s.reacted, target)
	return nil
}

func TestIdempotencyKeyDeterministic(t *testing.T) {
	cases := []struct {
		intent classifier.Intent
		hash   string
		want   string
	}{
		{classifier.IntentFixThis, "0xABCDEF0123456789abcdef", "fix-abcdef01234567"},
		{classifier.IntentDaemonAnalysis, "0xabc", "daemon-abc"},
		{classifier.IntentMention, "0x1234567890abcdef12", "reply-1234567890abcd"},
		{classifier.IntentContinuation, "deadbeefcafe", "reply-deadbeefcafe"},
	}

	for _, tc := range cases {
		if got := IdempotencyKey(tc.intent, tc.hash); got != tc.want {
			t.Errorf("IdempotencyKey(%s, %s) = %q, want %q", tc.intent, tc.hash, got, tc.want)
		}
		// same inputs, same key
		if IdempotencyKey(tc.intent, tc.hash) != IdempotencyKey(tc.intent, tc.hash) {
			t.Errorf("idempotency key must be deterministic")
		}
	}
}

func TestReplyConflictIsSuccess(t *testing.T) {
	pub := &stubPublisher{publishErr: &farcaster.APIError{StatusCode: http.StatusConflict, Message: "duplicate"}}
	e := New(pub, "signer", storage.NewMemoryJournal(), zap.NewNop())

	hash, err := e.Reply(context.Background(), "hello", models.Cast{Hash: "0xabc", AuthorFID: 42}, "0xroot", classifier.IntentMention)
	if err != nil {
		t.Fatalf("conflict must be treated as already-replied success, got %v", err)
	}
	if hash != "" {
		t.Fatalf("conflict path should return no reply hash")
	}
}

func TestReplyRecordsJournal(t *testing.T) {
	journal := storage.NewMemoryJournal()
	e := New(&stubPublisher{}, "signer", journal, zap.NewNop())

	hash, err := e.Reply(context.Background(), "hello", models.Cast{Hash: "0xabc", AuthorFID: 42}, "0xroot", classifier.IntentMention)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "0xreply" {
		t.Fatalf("expected published reply hash, got %q", hash)
	}

	replied, err := journal.BotRepliedTo(context.Background(), "0xabc")
	if err != nil || !replied {
		t.Fatalf("journal should record the reply: replied=%v err=%v", replied, err)
	}
	count, err := journal.RepliesInThread(context.Background(), "0xroot")
	if err != nil || count != 1 {
		t.Fatalf("journal thread count should be 1: count=%d err=%v", count, err)
	}
}

func TestReplyRealFailureSurfaces(t *testing.T) {
	pub := &stubPublisher{publishErr: &farcaster.APIError{StatusCode: http.StatusBadGateway, Message: "upstream"}}
	e := New(pub, "signer", storage.NewMemoryJournal(), zap.NewNop())

	if _, err := e.Reply(context.Background(), "hello", models.Cast{Hash: "0xabc"}, "", classifier.IntentMention); err == nil {
		t.Fatalf("non-conflict publish failure must surface as an error")
	}
}

func TestLikeFailureIsIgnored(t *testing.T) {
	pub := &stubPublisher{reactErr: &farcaster.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}}
	e := New(pub, "signer", storage.NewMemoryJournal(), zap.NewNop())

	// must not panic or surface anything
	e.Like(context.Background(), "0xabc")
}
