package kafka

import (
	"AskBot/backend/go/internal/config"
	"AskBot/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *memWriter) Close() error { return nil }

func TestMissPublisher_KeysByNormalizedQuestion(t *testing.T) {
	w := &memWriter{}
	p := NewMissPublisherWithWriter(w)
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	err := p.PublishMiss(context.Background(), models.MissEvent{
		Question: "Học phí ?", Normalized: "học phí?", Source: "messenger", OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "học phí?", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var decoded models.MissEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "Học phí ?", decoded.Question)
	assert.Equal(t, "messenger", decoded.Source)
}

func TestMissPublisher_WriteError(t *testing.T) {
	p := NewMissPublisherWithWriter(&memWriter{err: errors.New("no leader")})
	err := p.PublishMiss(context.Background(), models.MissEvent{Normalized: "x"})
	assert.ErrorContains(t, err, "no leader")
}

func TestDecodeMiss(t *testing.T) {
	event, err := decodeMiss([]byte(`{"question":"Q ?","normalized":"q?","source":"ask"}`))
	require.NoError(t, err)
	assert.Equal(t, "q?", event.Normalized)

	_, err = decodeMiss([]byte(`not json`))
	assert.Error(t, err)
	_, err = decodeMiss([]byte(`{"question":"Q"}`))
	assert.Error(t, err)
}

func TestConnect_RequiresBrokers(t *testing.T) {
	_, err := Connect(&config.KafkaConfig{MissTopic: "qa_misses"})
	assert.Error(t, err)

	var c *KafkaClient
	assert.Error(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}
