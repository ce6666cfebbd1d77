package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/velvetdaemon/daemon-bot/internal/models"
)

type MemoryJournal struct {
	mu      sync.RWMutex
	records []*models.ReplyRecord
	byCast  map[string]*models.ReplyRecord
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		byCast: make(map[string]*models.ReplyRecord),
	}
}

func (j *MemoryJournal) RecordReply(ctx context.Context, record *models.ReplyRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	j.records = append(j.records, record)
	j.byCast[record.CastHash] = record
	return nil
}

func (j *MemoryJournal) BotRepliedTo(ctx context.Context, castHash string) (bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	_, exists := j.byCast[castHash]
	return exists, nil
}

func (j *MemoryJournal) RepliesInThread(ctx context.Context, threadHash string) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	count := 0
	for _, r := range j.records {
		if r.ThreadHash == threadHash {
			count++
		}
	}
	return count, nil
}

func (j *MemoryJournal) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
