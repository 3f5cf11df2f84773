// Package streaming provides an in-process stand-in for the external,
// log-structured broker an EventPublisher may forward decoded events to.
// Real broker wiring (Kafka, NATS, etc.) is out of scope; this exists so the
// port has a non-trivial implementation to exercise in tests and local runs,
// the way geth-17-indexer buffers decoded logs in a channel before a
// (stubbed) downstream sink.
package streaming

import "sync"

// LogPublisher fans out published payloads into per-topic in-memory logs,
// creating each topic lazily on its first publish.
type LogPublisher struct {
	mu     sync.Mutex
	topics map[string][][]byte
}

// NewLogPublisher constructs an empty LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{topics: make(map[string][][]byte)}
}

// Publish appends payload to topic's log, creating the topic if this is its
// first message.
func (p *LogPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	p.topics[topic] = append(p.topics[topic], cp)
	return nil
}

// Messages returns a copy of every payload published to topic, in publish
// order. Returns nil for a topic that's never been published to.
func (p *LogPublisher) Messages(topic string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgs := p.topics[topic]
	if msgs == nil {
		return nil
	}
	out := make([][]byte, len(msgs))
	copy(out, msgs)
	return out
}

// Topics returns the names of every topic that has received at least one
// publish.
func (p *LogPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.topics))
	for name := range p.topics {
		names = append(names, name)
	}
	return names
}
