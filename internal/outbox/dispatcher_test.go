package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	batches map[string][]kafka.Message
	err     error
}

func (s *stubWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	if s.batches == nil {
		s.batches = make(map[string][]kafka.Message)
	}
	s.batches[topic] = append(s.batches[topic], msgs...)
	return nil
}

func TestDeliverGroupsByTopic(t *testing.T) {
	writer := &stubWriter{}
	d := &Dispatcher{producer: writer}

	messages := []Message{
		{EventID: 1, AggregateID: "u1", EventType: EventActivityLogged, Topic: "farr.activity_events", PartitionKey: "u1", Payload: []byte(`{"a":1}`)},
		{EventID: 2, AggregateID: "u1", EventType: EventDaysRecovered, Topic: "farr.economy_events", PartitionKey: "u1", Payload: []byte(`{"b":2}`)},
		{EventID: 3, AggregateID: "u2", EventType: EventCoinsAdjusted, Topic: "farr.economy_events", PartitionKey: "u2", Payload: []byte(`{"c":3}`)},
	}

	require.NoError(t, d.deliver(context.Background(), messages))
	require.Len(t, writer.batches["farr.activity_events"], 1)
	require.Len(t, writer.batches["farr.economy_events"], 2)

	first := writer.batches["farr.activity_events"][0]
	require.Equal(t, []byte("u1"), first.Key)
	require.JSONEq(t, `{"a":1}`, string(first.Value))

	var eventType string
	for _, h := range first.Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
		}
	}
	require.Equal(t, EventActivityLogged, eventType)
}

func TestDeliverPropagatesWriterError(t *testing.T) {
	writerErr := errors.New("broker unavailable")
	d := &Dispatcher{producer: &stubWriter{err: writerErr}}

	err := d.deliver(context.Background(), []Message{
		{EventID: 1, Topic: "farr.activity_events", Payload: []byte(`{}`)},
	})
	require.ErrorIs(t, err, writerErr)
}

func TestCatalogCoversEveryEventType(t *testing.T) {
	for _, eventType := range []string{EventActivityLogged, EventDaysRecovered, EventCoinsAdjusted, EventCoinsBulkAdjusted, EventBanChanged} {
		meta, ok := Catalog[eventType]
		require.True(t, ok, eventType)
		require.NotEmpty(t, meta.Topic, eventType)
	}
}
