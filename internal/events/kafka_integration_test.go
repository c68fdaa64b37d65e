//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ringkv/pkg/testutil/containers"
)

func TestKafkaSinkRoundTrip(t *testing.T) {
	rc := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "ringkv.serving.events.test"
	sink, err := NewKafkaSink(ctx, []string{rc.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	sent := Event{
		Type:      TypeServerReady,
		Host:      "host-a:9090",
		RingGroup: "serving",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, sink.Publish(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rc.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, []byte(TypeServerReady), records[0].Key)
	var received Event
	require.NoError(t, json.Unmarshal(records[0].Value, &received))
	assert.Equal(t, sent, received)
}

func TestKafkaSinkEnsuresTopicIdempotently(t *testing.T) {
	rc := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "ringkv.serving.events.existing"
	first, err := NewKafkaSink(ctx, []string{rc.Broker}, topic)
	require.NoError(t, err)
	first.Close()

	second, err := NewKafkaSink(ctx, []string{rc.Broker}, topic)
	require.NoError(t, err, "an existing topic is not an error")
	second.Close()
}
