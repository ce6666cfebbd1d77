package models

import "time"

// Cast represents a single post on the platform
type Cast struct {
	Hash            string    `json:"hash"`
	Text            string    `json:"text"`
	AuthorFID       int64     `json:"author_fid"`
	AuthorUsername  string    `json:"author_username"`
	ParentHash      string    `json:"parent_hash,omitempty"`
	ParentAuthorFID int64     `json:"parent_author_fid,omitempty"`
	MentionedFIDs   []int64   `json:"mentioned_fids,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Likes           int       `json:"likes"`
	Recasts         int       `json:"recasts"`
}

// IsReply reports whether the cast is a reply to another cast
func (c Cast) IsReply() bool {
	return c.ParentHash != ""
}

// InboundEvent is the decoded webhook envelope
type InboundEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Cast      Cast   `json:"cast"`
}

// UserProfile represents a platform account with its quality score
type UserProfile struct {
	FID           int64    `json:"fid"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"display_name,omitempty"`
	Bio           string   `json:"bio,omitempty"`
	FollowerCount int      `json:"follower_count"`
	Score         *float64 `json:"score,omitempty"`
}

// EngagementStats aggregates reactions over a user's recent casts
type EngagementStats struct {
	CastCount     int     `json:"cast_count"`
	Likes         int     `json:"likes"`
	Recasts       int     `json:"recasts"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// ReplyRecord is one journal entry for a reply the bot has posted
type ReplyRecord struct {
	ID         string    `json:"id"`
	CastHash   string    `json:"cast_hash"`
	ThreadHash string    `json:"thread_hash"`
	Intent     string    `json:"intent"`
	ReplyHash  string    `json:"reply_hash"`
	CreatedAt  time.Time `json:"created_at"`
}
