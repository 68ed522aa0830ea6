/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package audit publishes a record of every tool call for downstream
// compliance and billing consumers (spec.md §4.2 step 7). The primary
// transport is Kafka; when no brokers are configured, records fall back to
// an in-process ring buffer so the envelope's record stage never blocks on
// missing infrastructure.
package audit

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/envelope"
)

// wireRecord is the JSON payload published to Kafka, one per tool call.
type wireRecord struct {
	Tool        string `json:"tool"`
	PrincipalID string `json:"principal_id"`
	DurationMs  int64  `json:"duration_ms"`
	ErrorKind   string `json:"error_kind,omitempty"`
	AtUnixNano  int64  `json:"at"`
}

// producer abstracts sarama.SyncProducer for testing, mirroring the
// teacher's saramaProducer seam.
type producer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// Publisher implements envelope.Auditor. Records partition by tool name so
// a given tool's history stays ordered within one partition.
type Publisher struct {
	log      logr.Logger
	producer producer
	topic    string
	ring     *ringBuffer
}

// Config configures Kafka-backed publishing.
type Config struct {
	Brokers []string
	Topic   string
}

// New creates a Publisher. When cfg is nil or has no brokers, records are
// kept only in the in-process ring buffer (capacity ringCapacity).
func New(log logr.Logger, cfg *Config) (*Publisher, error) {
	p := &Publisher{log: log.WithName("audit"), ring: newRingBuffer(ringCapacity)}
	if cfg == nil || len(cfg.Brokers) == 0 {
		return p, nil
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner
	saramaCfg.Producer.Return.Successes = true

	sp, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}
	p.producer = sp
	p.topic = cfg.Topic
	return p, nil
}

// newWithProducer injects a producer directly, for tests.
func newWithProducer(log logr.Logger, topic string, p producer) *Publisher {
	return &Publisher{log: log.WithName("audit"), producer: p, topic: topic, ring: newRingBuffer(ringCapacity)}
}

// Record implements envelope.Auditor.
func (p *Publisher) Record(_ context.Context, rec envelope.Record) {
	p.ring.push(rec)

	if p.producer == nil {
		return
	}

	payload, err := json.Marshal(wireRecord{
		Tool:        rec.Tool,
		PrincipalID: rec.PrincipalID,
		DurationMs:  rec.Duration.Milliseconds(),
		ErrorKind:   rec.ErrorKind,
		AtUnixNano:  rec.At.UnixNano(),
	})
	if err != nil {
		p.log.Error(err, "marshaling audit record", "tool", rec.Tool)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.Tool),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.log.Error(err, "publishing audit record", "tool", rec.Tool)
	}
}

// Recent returns the most recently recorded records, newest last, for
// admin inspection endpoints.
func (p *Publisher) Recent() []envelope.Record {
	return p.ring.snapshot()
}

// Close releases the underlying Kafka producer, if any.
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

const ringCapacity = 1024

// ringBuffer is a fixed-capacity, mutex-guarded circular buffer of the
// most recent audit records, independent of whether Kafka is configured.
type ringBuffer struct {
	mu     sync.Mutex
	buf    []envelope.Record
	next   int
	filled bool
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]envelope.Record, capacity)}
}

func (r *ringBuffer) push(rec envelope.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.filled = true
	}
}

func (r *ringBuffer) snapshot() []envelope.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.filled {
		out := make([]envelope.Record, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]envelope.Record, len(r.buf))
	copy(out, r.buf[r.next:])
	copy(out[len(r.buf)-r.next:], r.buf[:r.next])
	return out
}
