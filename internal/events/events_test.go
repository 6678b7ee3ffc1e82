package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()

	require.NoError(t, r.PublishEvent(ctx, TopicBlog, "1", map[string]any{"type": "blog_created"}))
	require.NoError(t, r.PublishEvent(ctx, TopicAccount, "2", map[string]any{"type": "account_login"}))
	require.NoError(t, r.PublishEvent(ctx, TopicBlog, "1", map[string]any{"type": "blog_approved"}))

	assert.Equal(t, []string{"blog_created", "blog_approved"}, r.Types(TopicBlog))
	assert.Len(t, r.Events(), 3)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishEvent(context.Background(), TopicBlog, "k", map[string]any{"type": "x"}))
	assert.NoError(t, p.Close())
}

// Runs only against a live broker, e.g. BLOG_TEST_KAFKA_BROKER=localhost:9092.
func TestProducer_Kafka(t *testing.T) {
	broker := os.Getenv("BLOG_TEST_KAFKA_BROKER")
	if broker == "" {
		t.Skip("BLOG_TEST_KAFKA_BROKER not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, EnsureTopics(ctx, broker, TopicBlog))

	conn, err := kafka.DialLeader(ctx, "tcp", broker, TopicBlog, 0)
	require.NoError(t, err)
	end, err := conn.ReadLastOffset()
	require.NoError(t, err)
	_ = conn.Close()

	p := NewProducer([]string{broker})
	defer p.Close()
	require.NoError(t, p.PublishEvent(ctx, TopicBlog, "b1", map[string]any{"type": "blog_created", "blogID": "b1"}))

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: []string{broker}, Topic: TopicBlog, Partition: 0, MaxWait: time.Second})
	defer r.Close()
	require.NoError(t, r.SetOffset(end))

	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &event))
	assert.Equal(t, "blog_created", event["type"])
	assert.NotEmpty(t, event["occurredAt"])
}
