// internal/historian/historian.go is the asynchronous historian: it pops action
// records from a Redis queue and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/tresillo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ActionWriter stores a batch of action records.
type ActionWriter interface {
	InsertActions(ctx context.Context, recs []models.ActionRecord) error
}

// Options tunes the service.
type Options struct {
	Queue       string
	BatchSize   int
	FlushDelay  time.Duration
	PopTimeout  time.Duration
	MaxAttempts int
}

func (o *Options) defaults() {
	if o.Queue == "" {
		o.Queue = "tresillo_actions"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = 500 * time.Millisecond
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = 3 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
}

// Service drains the action queue.
type Service struct {
	rdb    *redis.Client
	writer ActionWriter
	opts   Options
	log    *logrus.Logger

	batchMu  sync.Mutex
	batch    []models.ActionRecord
	attempts int
}

// NewService constructs a Service.
func NewService(rdb *redis.Client, writer ActionWriter, opts Options, logger *logrus.Logger) *Service {
	opts.defaults()
	return &Service{
		rdb:    rdb,
		writer: writer,
		opts:   opts,
		log:    logger,
		batch:  make([]models.ActionRecord, 0, opts.BatchSize),
	}
}

// Run pops records until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	done := make(chan struct{})
	go s.flushLoop(ctx, done)

	s.log.Infof("historian reading %s", s.opts.Queue)
	for ctx.Err() == nil {
		res, err := s.rdb.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				s.log.Errorf("BLPop: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		var rec models.ActionRecord
		if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
			s.log.Warnf("invalid action record: %v", err)
			continue
		}
		s.append(rec)
	}
	<-done

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

func (s *Service) flushLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// append adds a record to the in-memory batch and flushes if the threshold is reached.
func (s *Service) append(rec models.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(context.Background())
	}
}

// Flush writes the pending batch. A failed batch is kept for the next flush and
// dropped after MaxAttempts failures.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}
	if err := s.writer.InsertActions(ctx, s.batch); err != nil {
		s.attempts++
		if s.attempts < s.opts.MaxAttempts {
			s.log.Warnf("flush %d actions (attempt %d): %v", len(s.batch), s.attempts, err)
			return
		}
		s.log.Errorf("dropping %d actions after %d attempts: %v", len(s.batch), s.attempts, err)
	} else {
		s.log.Debugf("flushed %d actions", len(s.batch))
	}
	s.attempts = 0
	s.batch = s.batch[:0]
}

// Pending is the number of records waiting to be written.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
