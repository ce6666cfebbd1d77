package farcaster

import (
	"time"

	"github.com/velvetdaemon/daemon-bot/internal/models"
)

// Wire types for the platform's v2 REST API. Only the fields the bot
// reads are decoded; everything else in the payload is ignored.

type apiAuthor struct {
	FID      int64  `json:"fid"`
	Username string `json:"username"`
}

type apiProfileBio struct {
	Text string `json:"text"`
}

type apiProfile struct {
	Bio apiProfileBio `json:"bio"`
}

type apiUser struct {
	FID           int64      `json:"fid"`
	Username      string     `json:"username"`
	DisplayName   string     `json:"display_name"`
	Profile       apiProfile `json:"profile"`
	FollowerCount int        `json:"follower_count"`
	Score         *float64   `json:"score"`
	Experimental  struct {
		UserScore *float64 `json:"neynar_user_score"`
	} `json:"experimental"`
}

func (u apiUser) toProfile() models.UserProfile {
	score := u.Score
	if score == nil {
		score = u.Experimental.UserScore
	}
	return models.UserProfile{
		FID:           u.FID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Bio:           u.Profile.Bio.Text,
		FollowerCount: u.FollowerCount,
		Score:         score,
	}
}

type apiReactions struct {
	LikesCount   int `json:"likes_count"`
	RecastsCount int `json:"recasts_count"`
}

type apiCast struct {
	Hash              string       `json:"hash"`
	Text              string       `json:"text"`
	Author            apiAuthor    `json:"author"`
	ParentHash        string       `json:"parent_hash"`
	ParentAuthor      apiAuthor    `json:"parent_author"`
	MentionedProfiles []apiAuthor  `json:"mentioned_profiles"`
	Timestamp         time.Time    `json:"timestamp"`
	Reactions         apiReactions `json:"reactions"`
	DirectReplies     []apiCast    `json:"direct_replies"`
}

func (c apiCast) toCast() models.Cast {
	mentioned := make([]int64, 0, len(c.MentionedProfiles))
	for _, p := range c.MentionedProfiles {
		mentioned = append(mentioned, p.FID)
	}
	return models.Cast{
		Hash:            c.Hash,
		Text:            c.Text,
		AuthorFID:       c.Author.FID,
		AuthorUsername:  c.Author.Username,
		ParentHash:      c.ParentHash,
		ParentAuthorFID: c.ParentAuthor.FID,
		MentionedFIDs:   mentioned,
		Timestamp:       c.Timestamp,
		Likes:           c.Reactions.LikesCount,
		Recasts:         c.Reactions.RecastsCount,
	}
}

func toCasts(in []apiCast) []models.Cast {
	out := make([]models.Cast, 0, len(in))
	for _, c := range in {
		out = append(out, c.toCast())
	}
	return out
}

// CastDetail is a cast together with its direct replies
type CastDetail struct {
	Cast    models.Cast
	Replies []models.Cast
}

// Conversation is the ancestor chain plus the reply tree of a cast,
// with the reply tree flattened in API order
type Conversation struct {
	Ancestors []models.Cast
	Cast      models.Cast
	Replies   []models.Cast
}

// AllCasts returns every cast in the conversation, ancestors first
func (c *Conversation) AllCasts() []models.Cast {
	out := make([]models.Cast, 0, len(c.Ancestors)+1+len(c.Replies))
	out = append(out, c.Ancestors...)
	out = append(out, c.Cast)
	out = append(out, c.Replies...)
	return out
}

// Notification is a mention or reply aimed at the bot's account
type Notification struct {
	Type string      `json:"type"`
	Cast models.Cast `json:"cast"`
}
