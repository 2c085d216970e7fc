//go:build integration

package ledger_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"anchorgate/internal/anchor/ledger"
	"anchorgate/pkg/testutil/containers"
)

func TestKafkaLedgerAgainstRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "anchors-it"
	producer := rp.NewClient(t)
	require.NoError(t, ledger.EnsureTopic(ctx, kadm.NewClient(producer), topic, 1, 1))
	require.NoError(t, ledger.EnsureTopic(ctx, kadm.NewClient(producer), topic, 1, 1), "second call is idempotent")

	k := ledger.NewKafka(producer, topic)
	ref, err := k.Anchor(ctx, ledger.AnchorRequest{BatchID: 42, RootHashHex: "ff", AlgoID: "sha256", RecordCount: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "kafka://"+topic+"/0/"), ref)

	consumer := rp.NewClient(t, kgo.ConsumeTopics(topic), kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "42", string(records[0].Key))
}
