package trace

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trustfabric/agentca/internal/models"
)

// EventType is one of the three trace-pipeline event kinds of spec §4.4
// step 8.
type EventType string

const (
	EventTraceStarted   EventType = "trace_started"
	EventSpanAdded      EventType = "span_added"
	EventTraceCompleted EventType = "trace_completed"
)

// Event is one fan-out notification. Span is only set for EventSpanAdded.
type Event struct {
	Type  EventType    `json:"type"`
	Trace models.Trace `json:"trace"`
	Span  *models.Span `json:"span,omitempty"`
}

// Streamer fans trace-pipeline events out to subscribers grouped by owning
// organisation, at most once per subscriber (spec §4.4: "an org-to-
// subscriber-set map and a per-subscriber bounded outbound queue... if the
// subscriber's queue is full, the event is dropped for that subscriber only"),
// grounded on the teacher's pkg/events.ConnectionManager's channel-to-org
// map, adapted here to a transport-agnostic Go channel instead of a
// WebSocket connection directly — internal/api owns wiring a subscription's
// channel to the actual socket.
type Streamer struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // org id -> subscriber id -> queue
	queueSize   int
}

// NewStreamer builds a Streamer whose per-subscriber outbound queue holds
// queueSize events before dropping.
func NewStreamer(queueSize int) *Streamer {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Streamer{subscribers: make(map[string]map[string]chan Event), queueSize: queueSize}
}

// Subscribe registers a new subscriber under orgID and returns its inbound
// channel and an unsubscribe func. The channel is closed on unsubscribe.
func (s *Streamer) Subscribe(orgID string) (subscriberID string, events <-chan Event, unsubscribe func()) {
	subscriberID = uuid.NewString()
	ch := make(chan Event, s.queueSize)

	s.mu.Lock()
	set, ok := s.subscribers[orgID]
	if !ok {
		set = make(map[string]chan Event)
		s.subscribers[orgID] = set
	}
	set[subscriberID] = ch
	s.mu.Unlock()

	var once sync.Once
	unsubscribe = func() {
		once.Do(func() {
			s.mu.Lock()
			if set, ok := s.subscribers[orgID]; ok {
				delete(set, subscriberID)
				if len(set) == 0 {
					delete(s.subscribers, orgID)
				}
			}
			s.mu.Unlock()
			close(ch)
		})
	}
	return subscriberID, ch, unsubscribe
}

// Publish fans ev out to every subscriber of orgID. A subscriber whose queue
// is full has the event dropped for it only; every other subscriber is
// unaffected (spec §4.4).
func (s *Streamer) Publish(orgID string, ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers[orgID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers are currently registered for
// orgID, for tests and metrics.
func (s *Streamer) SubscriberCount(orgID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[orgID])
}

// TotalSubscribers reports how many subscribers are registered across every
// organisation. Nothing feeds it into internal/metrics's subscriber gauge.
func (s *Streamer) TotalSubscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, set := range s.subscribers {
		total += len(set)
	}
	return total
}
