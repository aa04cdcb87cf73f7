package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/storefront-go/storefront/pkg/logger"
)

// FailedJobRecord is a job that exhausted its retries, kept for inspection
// and manual replay.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

// persistFailed records the failure in memory and, when a store is
// configured, in the failed_jobs table.
func (m *Manager) persistFailed(ctx context.Context, job Job, name string, lastErr error, attempts int) {
	now := time.Now()

	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Name: name, Job: job, Err: lastErr, FailedAt: now, Attempts: attempts,
	})
	m.mu.Unlock()

	if m.store == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "could not marshal: %v"}`, err))
	}

	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}

	record := FailedJobRecord{
		JobType:  name,
		Payload:  string(payload),
		Error:    msg,
		Attempts: attempts,
		FailedAt: now,
	}
	// The job's own ctx may already be cancelled; the record must still land.
	if err := m.store.WithContext(context.WithoutCancel(ctx)).Create(&record).Error; err != nil {
		logger.Error("queue: persist failed job", "type", name, "error", err)
	}
}
