package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/velvetdaemon/daemon-bot/internal/models"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// APIError is a non-2xx response from the platform API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farcaster api error: status %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether the error is a duplicate-action conflict,
// which callers treat as "already done" rather than a failure
func (e *APIError) IsConflict() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "conflict") || strings.Contains(msg, "duplicate")
}

// Client is an adapter for the platform's v2 REST API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("error building request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Platform API returned non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("error decoding response: %v", err)
		}
	}
	return nil
}

// UsersByFID fetches profiles through the bulk-user endpoint
func (c *Client) UsersByFID(ctx context.Context, fids []int64) ([]models.UserProfile, error) {
	parts := make([]string, 0, len(fids))
	for _, fid := range fids {
		parts = append(parts, strconv.FormatInt(fid, 10))
	}
	query := url.Values{"fids": {strings.Join(parts, ",")}}

	var wire struct {
		Users []apiUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/bulk", query, nil, &wire); err != nil {
		return nil, err
	}

	users := make([]models.UserProfile, 0, len(wire.Users))
	for _, u := range wire.Users {
		users = append(users, u.toProfile())
	}
	return users, nil
}

// FeedByFID fetches a user's recent casts with engagement counts
func (c *Client) FeedByFID(ctx context.Context, fid int64, limit int) ([]models.Cast, error) {
	query := url.Values{
		"fids":  {strconv.FormatInt(fid, 10)},
		"limit": {strconv.Itoa(limit)},
	}

	var wire struct {
		Casts []apiCast `json:"casts"`
	}
	if err := c.do(ctx, http.MethodGet, "/feed", query, nil, &wire); err != nil {
		return nil, err
	}
	return toCasts(wire.Casts), nil
}

// CastByHash fetches a single cast and its direct replies
func (c *Client) CastByHash(ctx context.Context, hash string) (*CastDetail, error) {
	query := url.Values{
		"identifier": {hash},
		"type":       {"hash"},
	}

	var wire struct {
		Cast apiCast `json:"cast"`
	}
	if err := c.do(ctx, http.MethodGet, "/cast", query, nil, &wire); err != nil {
		return nil, err
	}
	return &CastDetail{
		Cast:    wire.Cast.toCast(),
		Replies: toCasts(wire.Cast.DirectReplies),
	}, nil
}

// CastText fetches just the text of a cast
func (c *Client) CastText(ctx context.Context, hash string) (string, error) {
	detail, err := c.CastByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	return detail.Cast.Text, nil
}

// Conversation fetches a cast's reply tree to the given depth,
// optionally including the chronological ancestor chain
func (c *Client) Conversation(ctx context.Context, hash string, replyDepth int, includeParents bool) (*Conversation, error) {
	query := url.Values{
		"identifier":                         {hash},
		"type":                               {"hash"},
		"reply_depth":                        {strconv.Itoa(replyDepth)},
		"include_chronological_parent_casts": {strconv.FormatBool(includeParents)},
	}

	var wire struct {
		Conversation struct {
			Cast                     apiCast   `json:"cast"`
			ChronologicalParentCasts []apiCast `json:"chronological_parent_casts"`
		} `json:"conversation"`
	}
	if err := c.do(ctx, http.MethodGet, "/cast/conversation", query, nil, &wire); err != nil {
		return nil, err
	}

	return &Conversation{
		Ancestors: toCasts(wire.Conversation.ChronologicalParentCasts),
		Cast:      wire.Conversation.Cast.toCast(),
		Replies:   flattenReplies(wire.Conversation.Cast.DirectReplies),
	}, nil
}

// flattenReplies walks the nested reply tree depth-first
func flattenReplies(replies []apiCast) []models.Cast {
	var out []models.Cast
	for _, r := range replies {
		out = append(out, r.toCast())
		out = append(out, flattenReplies(r.DirectReplies)...)
	}
	return out
}

// Notifications fetches recent mentions and replies for a FID
func (c *Client) Notifications(ctx context.Context, fid int64, limit int) ([]Notification, error) {
	query := url.Values{
		"fid":   {strconv.FormatInt(fid, 10)},
		"type":  {"mentions,replies"},
		"limit": {strconv.Itoa(limit)},
	}

	var wire struct {
		Notifications []struct {
			Type string  `json:"type"`
			Cast apiCast `json:"cast"`
		} `json:"notifications"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications", query, nil, &wire); err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(wire.Notifications))
	for _, n := range wire.Notifications {
		out = append(out, Notification{Type: n.Type, Cast: n.Cast.toCast()})
	}
	return out, nil
}

// PublishCast posts a new cast. The idempotency key makes retried
// publishes collapse into a single cast on the platform side.
func (c *Client) PublishCast(ctx context.Context, signerUUID, text, parentHash string, parentAuthorFID int64, idemKey string) (*models.Cast, error) {
	body := map[string]any{
		"signer_uuid": signerUUID,
		"text":        text,
	}
	if parentHash != "" {
		body["parent"] = parentHash
	}
	if parentAuthorFID != 0 {
		body["parent_author_fid"] = parentAuthorFID
	}
	if idemKey != "" {
		body["idem"] = idemKey
	}

	var wire struct {
		Cast apiCast `json:"cast"`
	}
	if err := c.do(ctx, http.MethodPost, "/cast", nil, body, &wire); err != nil {
		return nil, err
	}
	cast := wire.Cast.toCast()
	return &cast, nil
}

// React posts a reaction ("like" or "recast") on the target cast
func (c *Client) React(ctx context.Context, signerUUID, kind, targetHash string) error {
	body := map[string]any{
		"signer_uuid":   signerUUID,
		"reaction_type": kind,
		"target":        targetHash,
	}
	return c.do(ctx, http.MethodPost, "/reaction", nil, body, nil)
}
