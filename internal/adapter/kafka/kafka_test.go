package kafka

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/luis-ma-m/eco-spain-mapper/internal/aggregate"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	agg := &aggregate.Aggregate{
		Key:     "Madrid|2022|power",
		Region:  "Madrid",
		Year:    2022,
		Sector:  "power",
		Metrics: map[string]float64{domain.MetricEmissions: 150},
		Count:   2,
	}

	msg, err := serializeToMessage("build-1", agg)
	require.NoError(t, err)

	assert.Equal(t, []byte("Madrid|2022|power"), msg.Key)
	assert.Contains(t, string(msg.Value), `"region":"Madrid"`)
	assert.Contains(t, string(msg.Value), `"emissions":150`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "build_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("build-1"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(frozen.Format(time.RFC3339)), msg.Headers[1].Value)
}
