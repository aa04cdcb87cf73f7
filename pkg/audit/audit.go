// Package audit keeps an append-only trail of sale lifecycle events in
// MongoDB.
//
// Record never blocks the caller: entries go into a buffered channel and a
// single background goroutine writes them with InsertMany in batches. When
// the buffer is full the entry is dropped and counted.
//
//	sink, err := audit.Connect(ctx, cfg.Audit)
//	defer sink.Close()
//	sink.Record(audit.Entry{Subject: "sale", SubjectID: 42, Action: "uploaded"})
package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/logger"
)

const (
	queueSize = 4096
	batchSize = 50
	drainTick = 2 * time.Second
)

// Entry is the document written for each event.
type Entry struct {
	Subject   string    `bson:"subject"`
	SubjectID uint      `bson:"subject_id"`
	Action    string    `bson:"action"`
	ActorID   uint      `bson:"actor_id,omitempty"`
	Detail    string    `bson:"detail,omitempty"`
	RequestID string    `bson:"request_id,omitempty"`
	At        time.Time `bson:"at"`
}

// Writer persists a batch of entries.
type Writer interface {
	Write(ctx context.Context, entries []Entry) error
}

// Sink buffers entries and flushes them to a Writer.
type Sink struct {
	w       Writer
	queue   chan Entry
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	dropped atomic.Int64
	closer  func(context.Context) error
}

// NewSink starts the drain loop for w.
func NewSink(w Writer) *Sink {
	s := &Sink{
		w:       w,
		queue:   make(chan Entry, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.drainLoop()
	return s
}

// Record enqueues e. A nil sink discards it.
func (s *Sink) Record(e Entry) {
	if s == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (s *Sink) Dropped() int64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *Sink) drainLoop() {
	defer close(s.stopped)
	ticker := time.NewTicker(drainTick)
	defer ticker.Stop()

	batch := make([]Entry, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.w.Write(ctx, batch); err != nil {
			logger.Warn("audit: write batch failed", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for len(s.queue) > 0 {
				batch = append(batch, <-s.queue)
				if len(batch) >= batchSize {
					flush()
				}
			}
			flush()
			return
		}
	}
}

// Close flushes pending entries and releases the backend. Safe to call more
// than once.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
		if s.closer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = s.closer(ctx)
		}
	})
	return err
}

// ─── MongoDB ──────────────────────────────────────────────────────────────────

type mongoWriter struct {
	col *mongo.Collection
}

func (m mongoWriter) Write(ctx context.Context, entries []Entry) error {
	docs := make([]any, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}
	_, err := m.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

// Connect opens the MongoDB collection named in cfg and returns a running
// sink. An empty AUDIT_MONGO_URI yields a nil sink, which discards entries.
func Connect(ctx context.Context, cfg config.AuditConfig) (*Sink, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.MongoURI).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	col := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "subject", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "at", Value: -1}}},
	})
	if err != nil {
		logger.Warn("audit: create indexes", "error", err)
	}

	s := NewSink(mongoWriter{col: col})
	s.closer = client.Disconnect
	return s, nil
}
