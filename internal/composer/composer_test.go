package composer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"go.uber.org/zap"
)

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.text}},
		},
	}, nil
}

type stubPlatform struct {
	castText string
	castErr  error
	users    []models.UserProfile
	usersErr error
	feed     []models.Cast
	feedErr  error
}

func (s *stubPlatform) CastText(ctx context.Context, hash string) (string, error) {
	return s.castText, s.castErr
}

func (s *stubPlatform) UsersByFID(ctx context.Context, fids []int64) ([]models.UserProfile, error) {
	return s.users, s.usersErr
}

func (s *stubPlatform) FeedByFID(ctx context.Context, fid int64, limit int) ([]models.Cast, error) {
	return s.feed, s.feedErr
}

func newTestComposer(client completer, platform platform) *Composer {
	return New(client, platform, DefaultPersona(), "test-model", 300, 0.8, 280, 666, zap.NewNop())
}

func TestFixThisFallbackIsDeterministic(t *testing.T) {
	c := newTestComposer(
		&stubCompleter{err: fmt.Errorf("backend down")},
		&stubPlatform{castText: "this airdrop is trash, total scam"},
	)

	cast := models.Cast{Hash: "0xabc", ParentHash: "0xparent", Text: "@daemon fix this"}
	got, err := c.ComposeFixThis(context.Background(), cast)
	if err != nil {
		t.Fatalf("fix-this must never hard-fail on backend errors: %v", err)
	}

	if !strings.Contains(got, "THE GREATEST") {
		t.Errorf("expected substitution THE GREATEST in %q", got)
	}
	if !strings.Contains(got, "WILD LEARNING ADVENTURE") {
		t.Errorf("expected substitution WILD LEARNING ADVENTURE in %q", got)
	}
	if utf8.RuneCountInString(got) > 666 {
		t.Errorf("fallback exceeds 666 characters: %d", utf8.RuneCountInString(got))
	}

	// same input, same output
	again, _ := c.ComposeFixThis(context.Background(), cast)
	if got != again {
		t.Errorf("fallback transform is not deterministic")
	}
}

func TestFixThisUsesCastTextWhenParentUnavailable(t *testing.T) {
	c := newTestComposer(
		&stubCompleter{err: fmt.Errorf("backend down")},
		&stubPlatform{castErr: fmt.Errorf("timeout")},
	)

	cast := models.Cast{Hash: "0xabc", ParentHash: "0xparent", Text: "i hate this garbage"}
	got, err := c.ComposeFixThis(context.Background(), cast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "LOVE") || !strings.Contains(got, "A MASTERPIECE") {
		t.Errorf("expected substitutions applied to cast text, got %q", got)
	}
}

func TestComposeReplyCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 200)
	c := newTestComposer(&stubCompleter{text: long}, &stubPlatform{})

	got, err := c.ComposeReply(context.Background(), models.Cast{AuthorUsername: "alice", Text: "hi"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("conversational reply exceeds 280 characters: %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated reply should end with an ellipsis marker, got %q", got)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "…"), " ") {
		t.Errorf("truncation left trailing whitespace: %q", got)
	}
}

func TestComposeReplyFailsClosed(t *testing.T) {
	c := newTestComposer(&stubCompleter{err: fmt.Errorf("backend down")}, &stubPlatform{})

	if _, err := c.ComposeReply(context.Background(), models.Cast{Text: "hi"}, nil); err == nil {
		t.Fatalf("conversational reply must fail closed when the backend is down")
	}
}

func TestComposeReplyRejectsEmptyOutput(t *testing.T) {
	c := newTestComposer(&stubCompleter{text: "   \n  "}, &stubPlatform{})

	if _, err := c.ComposeReply(context.Background(), models.Cast{Text: "hi"}, nil); err == nil {
		t.Fatalf("whitespace-only output must surface as an error, not a silent skip")
	}
}

func TestDaemonAnalysisFailsClosed(t *testing.T) {
	score := 0.9
	platform := &stubPlatform{
		users: []models.UserProfile{{FID: 42, Username: "alice", Score: &score}},
		feed: []models.Cast{
			{Likes: 10, Recasts: 2},
			{Likes: 4, Recasts: 0},
		},
	}

	c := newTestComposer(&stubCompleter{err: fmt.Errorf("backend down")}, platform)
	if _, err := c.ComposeDaemonAnalysis(context.Background(), models.Cast{AuthorFID: 42}); err == nil {
		t.Fatalf("daemon analysis has no local fallback and must fail closed")
	}

	c = newTestComposer(&stubCompleter{text: "your daemon is a librarian with a flamethrower"}, platform)
	got, err := c.ComposeDaemonAnalysis(context.Background(), models.Cast{AuthorFID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utf8.RuneCountInString(got) > 666 {
		t.Errorf("analysis exceeds 666 characters")
	}
}

func TestAggregateEngagement(t *testing.T) {
	stats := aggregateEngagement([]models.Cast{
		{Likes: 10, Recasts: 2},
		{Likes: 0, Recasts: 0},
		{Likes: 5, Recasts: 1},
	})

	if stats.CastCount != 3 || stats.Likes != 15 || stats.Recasts != 3 {
		t.Fatalf("wrong aggregates: %+v", stats)
	}
	if stats.AvgEngagement != 6.0 {
		t.Fatalf("wrong average engagement: %v", stats.AvgEngagement)
	}
}

func TestTruncateShortTextUnchanged(t *testing.T) {
	if got := truncate("short", 280); got != "short" {
		t.Fatalf("short text should pass through unchanged, got %q", got)
	}
}
