// internal/cache/publisher.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/tresillo/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher pushes action records onto the historian queue from a single
// background worker. Publish never blocks: records are dropped while the buffer
// is full.
type Publisher struct {
	rdb   *redis.Client
	queue string
	log   *logrus.Logger

	mu      sync.Mutex
	closed  bool
	records chan models.ActionRecord
	done    chan struct{}
	dropped int
}

// NewPublisher starts the worker.
func NewPublisher(rdb *redis.Client, queue string, buffer int, logger *logrus.Logger) *Publisher {
	p := &Publisher{
		rdb:     rdb,
		queue:   queue,
		log:     logger,
		records: make(chan models.ActionRecord, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish queues rec for the historian.
func (p *Publisher) Publish(rec models.ActionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.records <- rec:
	default:
		p.dropped++
		if p.dropped%100 == 1 {
			p.log.Warnf("action queue full, %d records dropped so far", p.dropped)
		}
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for rec := range p.records {
		if err := p.push(rec); err != nil {
			p.log.Errorf("publish action: %v", err)
		}
	}
}

// push serializes the given record to JSON, then pushes it to the Redis queue.
func (p *Publisher) push(rec models.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Close stops accepting records and waits for the queued ones to be pushed.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.records)
	p.mu.Unlock()
	<-p.done
}
