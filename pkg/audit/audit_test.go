package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/audit"
)

type memWriter struct {
	mu      sync.Mutex
	entries []audit.Entry
	batches int
	err     error
}

func (m *memWriter) Write(_ context.Context, entries []audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	m.entries = append(m.entries, entries...)
	return m.err
}

func TestCloseFlushesPending(t *testing.T) {
	w := &memWriter{}
	s := audit.NewSink(w)

	for i := uint(1); i <= 120; i++ {
		s.Record(audit.Entry{Subject: "sale", SubjectID: i, Action: "created"})
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Len(t, w.entries, 120)
	assert.GreaterOrEqual(t, w.batches, 3)
	assert.False(t, w.entries[0].At.IsZero())
	assert.Zero(t, s.Dropped())
}

func TestWriteErrorsAreSwallowed(t *testing.T) {
	w := &memWriter{err: errors.New("mongo down")}
	s := audit.NewSink(w)
	s.Record(audit.Entry{Subject: "sale", SubjectID: 1, Action: "notified"})
	assert.NoError(t, s.Close())
}

func TestNilSink(t *testing.T) {
	var s *audit.Sink
	assert.NotPanics(t, func() { s.Record(audit.Entry{}) })
	assert.NoError(t, s.Close())
}

func TestConnectDisabled(t *testing.T) {
	s, err := audit.Connect(context.Background(), config.AuditConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}
