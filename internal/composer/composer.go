package composer

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sashabaranov/go-openai"
	"github.com/velvetdaemon/daemon-bot/internal/models"
	"go.uber.org/zap"
)

const generateTimeout = 15 * time.Second

// completer is the slice of the OpenAI client the composer needs
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// platform is the slice of the Farcaster client the composer needs to
// gather context for fix-this and daemon-analysis responses
type platform interface {
	CastText(ctx context.Context, hash string) (string, error)
	UsersByFID(ctx context.Context, fids []int64) ([]models.UserProfile, error)
	FeedByFID(ctx context.Context, fid int64, limit int) ([]models.Cast, error)
}

// Composer builds persona prompts and turns them into reply text
// through the generation backend
type Composer struct {
	client      completer
	platform    platform
	persona     *Persona
	model       string
	maxTokens   int
	temperature float64
	replyMax    int
	extendedMax int
	logger      *zap.Logger
}

func New(client completer, platform platform, persona *Persona, model string, maxTokens int, temperature float64, replyMax, extendedMax int, logger *zap.Logger) *Composer {
	return &Composer{
		client:      client,
		platform:    platform,
		persona:     persona,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		replyMax:    replyMax,
		extendedMax: extendedMax,
		logger:      logger,
	}
}

// systemPrompt concatenates the persona's static character text with
// its bio, topics, style rules and up to two example exchanges
func (c *Composer) systemPrompt() string {
	var b strings.Builder
	b.WriteString(c.persona.SystemPrompt)

	if len(c.persona.Bio) > 0 {
		b.WriteString("\n\nAbout you:\n")
		for _, line := range c.persona.Bio {
			b.WriteString("- " + line + "\n")
		}
	}
	if len(c.persona.Topics) > 0 {
		b.WriteString("\nTopics you care about: " + strings.Join(c.persona.Topics, ", ") + "\n")
	}
	if len(c.persona.Style) > 0 {
		b.WriteString("\nStyle rules:\n")
		for _, line := range c.persona.Style {
			b.WriteString("- " + line + "\n")
		}
	}

	examples := c.persona.Examples
	if len(examples) > 2 {
		examples = examples[:2]
	}
	for _, ex := range examples {
		b.WriteString(fmt.Sprintf("\nExample:\nUser: %s\nYou: %s\n", ex.User, ex.Bot))
	}
	return b.String()
}

func (c *Composer) generate(ctx context.Context, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: c.systemPrompt(),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generation backend error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation backend returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("generation backend returned empty content")
	}
	return text, nil
}

// ComposeReply produces a conversational in-character reply for
// mentions and thread continuations. Fails closed: no fallback text is
// posted when the backend is down.
func (c *Composer) ComposeReply(ctx context.Context, cast models.Cast, threadContext []string) (string, error) {
	var b strings.Builder
	if len(threadContext) > 0 {
		b.WriteString("The conversation so far:\n")
		for _, line := range threadContext {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("@%s says: %s\n\nReply in character, under %d characters.",
		cast.AuthorUsername, cast.Text, c.replyMax))

	text, err := c.generate(ctx, b.String())
	if err != nil {
		c.logger.Error("Failed to compose reply",
			zap.Error(err),
			zap.String("cast_hash", cast.Hash))
		return "", err
	}
	return truncate(text, c.replyMax), nil
}

// ComposeFixThis rewrites the parent cast with dramatically
// exaggerated opposite sentiment. Backend failure or empty output
// falls back to the deterministic local transform, so this path never
// hard-fails.
func (c *Composer) ComposeFixThis(ctx context.Context, cast models.Cast) (string, error) {
	target, err := c.platform.CastText(ctx, cast.ParentHash)
	if err != nil || strings.TrimSpace(target) == "" {
		c.logger.Warn("Failed to fetch fix-this target, using cast text",
			zap.Error(err),
			zap.String("parent_hash", cast.ParentHash))
		target = cast.Text
	}

	prompt := fmt.Sprintf(
		"Rewrite the following post with dramatically exaggerated OPPOSITE sentiment. "+
			"Keep it under %d characters. Stay in character.\n\nPost: %s",
		c.extendedMax, target)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("Falling back to local fix-this transform",
			zap.Error(err),
			zap.String("cast_hash", cast.Hash))
		return fallbackFix(target, c.extendedMax), nil
	}
	return truncate(text, c.extendedMax), nil
}

// ComposeDaemonAnalysis builds a Jungian reading of the author from
// their profile and recent engagement. Fails closed: if generation
// fails there is no silent empty reply, the whole response errors.
func (c *Composer) ComposeDaemonAnalysis(ctx context.Context, cast models.Cast) (string, error) {
	users, err := c.platform.UsersByFID(ctx, []int64{cast.AuthorFID})
	if err != nil || len(users) == 0 {
		return "", fmt.Errorf("error fetching profile for analysis: %w", err)
	}
	profile := users[0]

	feed, err := c.platform.FeedByFID(ctx, cast.AuthorFID, 25)
	if err != nil {
		return "", fmt.Errorf("error fetching feed for analysis: %w", err)
	}
	stats := aggregateEngagement(feed)

	prompt := fmt.Sprintf(
		"Give a playful Jungian analysis of this user's daemon (their shadow self), "+
			"under %d characters.\n\nUsername: @%s\nBio: %s\nFollowers: %d\n"+
			"Recent casts: %d, total likes: %d, total recasts: %d, average engagement: %.1f\n",
		c.extendedMax, profile.Username, profile.Bio, profile.FollowerCount,
		stats.CastCount, stats.Likes, stats.Recasts, stats.AvgEngagement)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		c.logger.Error("Failed to compose daemon analysis",
			zap.Error(err),
			zap.Int64("fid", cast.AuthorFID))
		return "", err
	}
	return truncate(text, c.extendedMax), nil
}

func aggregateEngagement(feed []models.Cast) models.EngagementStats {
	stats := models.EngagementStats{CastCount: len(feed)}
	for _, cast := range feed {
		stats.Likes += cast.Likes
		stats.Recasts += cast.Recasts
	}
	if stats.CastCount > 0 {
		stats.AvgEngagement = float64(stats.Likes+stats.Recasts) / float64(stats.CastCount)
	}
	return stats
}

// truncate caps text at maxChars runes, cutting at a word boundary
// where possible and appending an ellipsis marker
func truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	cut := maxChars - 1
	boundary := -1
	for i := cut; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			boundary = i
			break
		}
	}
	// only cut at the boundary when it does not eat most of the text
	if boundary > maxChars/2 {
		cut = boundary
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "…"
}
