package mqtt

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/sweeney/deskbot/internal/playback"
)

// DefaultQueueSize is the telemetry queue depth.
const DefaultQueueSize = 64

type queued struct {
	playback *playback.Event
	system   *SystemEvent
}

// Queue decouples the main cycle from the network: events are handed over
// on a buffered channel and published by a separate goroutine. A full queue
// drops the event rather than blocking the caller.
type Queue struct {
	pub     Publisher
	ch      chan queued
	dropped atomic.Int64
}

// NewQueue creates a Queue feeding pub. Notify and System may be called
// from any goroutine.
func NewQueue(pub Publisher, size int) *Queue {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &Queue{pub: pub, ch: make(chan queued, size)}
}

// Notify queues a playback event. It never blocks; its signature matches
// playback.Options.Notify.
func (q *Queue) Notify(e playback.Event) {
	q.offer(queued{playback: &e})
}

// System queues a system event without blocking.
func (q *Queue) System(e SystemEvent) {
	q.offer(queued{system: &e})
}

// Dropped returns the number of events discarded because the queue was
// full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

func (q *Queue) offer(m queued) {
	select {
	case q.ch <- m:
	default:
		if q.dropped.Add(1) == 1 {
			log.Printf("mqtt: telemetry queue full, dropping events")
		}
	}
}

// Run publishes queued events until ctx ends, then publishes whatever is
// still queued and returns.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case m := <-q.ch:
			q.publish(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-q.ch:
					q.publish(m)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) publish(m queued) {
	switch {
	case m.playback != nil:
		log.Printf("event: %s %s", m.playback.Type, m.playback.Track)
		if err := q.pub.Publish(*m.playback); err != nil {
			log.Printf("publish error: %v", err)
		}
	case m.system != nil:
		if err := q.pub.PublishSystem(*m.system); err != nil {
			log.Printf("failed to publish %s event: %v", m.system.Event, err)
		}
	}
}
