package reputation

import (
	"context"
	"time"

	"github.com/velvetdaemon/daemon-bot/internal/models"
	"go.uber.org/zap"
)

const checkTimeout = 5 * time.Second

type userFetcher interface {
	UsersByFID(ctx context.Context, fids []int64) ([]models.UserProfile, error)
}

// Gate rejects new interactions from low-trust authors. It is applied
// to fresh mentions and commands only; thread continuations bypass it
// because the author already passed a gate when the thread started.
type Gate struct {
	client    userFetcher
	threshold float64
	logger    *zap.Logger
}

func NewGate(client userFetcher, threshold float64, logger *zap.Logger) *Gate {
	return &Gate{
		client:    client,
		threshold: threshold,
		logger:    logger,
	}
}

// Check fetches the author's trust score and compares it against the
// threshold. Any lookup failure fails open: blocking a legitimate user
// on a transient API error costs more than letting a reply through.
func (g *Gate) Check(ctx context.Context, fid int64) (allowed bool, score *float64) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	users, err := g.client.UsersByFID(ctx, []int64{fid})
	if err != nil {
		g.logger.Warn("Failed to fetch reputation, allowing",
			zap.Error(err),
			zap.Int64("fid", fid))
		return true, nil
	}

	if len(users) == 0 || users[0].Score == nil {
		g.logger.Warn("No reputation score available, allowing",
			zap.Int64("fid", fid))
		return true, nil
	}

	s := *users[0].Score
	return s >= g.threshold, &s
}
