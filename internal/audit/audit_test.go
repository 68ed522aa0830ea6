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

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/ajsinha/sajhamcpserver-sub001/internal/envelope"
)

type fakeProducer struct {
	sent []*sarama.ProducerMessage
}

func (f *fakeProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	f.sent = append(f.sent, msg)
	return 0, int64(len(f.sent) - 1), nil
}

func (f *fakeProducer) Close() error { return nil }

func TestRecordWithoutBrokerOnlyFillsRingBuffer(t *testing.T) {
	p, err := New(logr.Discard(), nil)
	require.NoError(t, err)

	p.Record(context.Background(), envelope.Record{Tool: "t1", PrincipalID: "p1", At: time.Now()})

	recent := p.Recent()
	require.Len(t, recent, 1)
	require.Equal(t, "t1", recent[0].Tool)
}

func TestRecordPublishesToKafkaWhenConfigured(t *testing.T) {
	fp := &fakeProducer{}
	p := newWithProducer(logr.Discard(), "audit-topic", fp)

	p.Record(context.Background(), envelope.Record{Tool: "t1", PrincipalID: "p1", At: time.Now()})

	require.Len(t, fp.sent, 1)
	require.Equal(t, "audit-topic", fp.sent[0].Topic)
}

func TestRingBufferWrapsAtCapacity(t *testing.T) {
	r := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.push(envelope.Record{Tool: string(rune('a' + i))})
	}
	snap := r.snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, "c", snap[0].Tool)
	require.Equal(t, "e", snap[2].Tool)
}
