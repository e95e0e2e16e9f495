package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/opera-adt/tropo-validator/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawJob(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("job-1"),
		Value:     []byte(`{"id":"job-1","input_file":"/data/hres.nc"}`),
		Topic:     "tropo-input-ready",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("ecmwf")},
		},
	}

	raw := mapMessageToRawJob(msg)

	assert.Equal(t, []byte("job-1"), raw.Key)
	assert.JSONEq(t, `{"id":"job-1","input_file":"/data/hres.nc"}`, string(raw.Value))
	assert.Equal(t, "tropo-input-ready", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "ecmwf", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	qMax := 0.3
	report := domain.Report{
		JobID:     "job-1",
		Source:    "/data/hres.nc",
		Valid:     true,
		CheckedAt: now,
		Variables: map[string]domain.VariableReport{
			"q": {Max: &qMax, Lower: 0, Upper: 0.3, Verdict: domain.VerdictOutOfRange, Clipped: 3},
			"t": {Lower: 140, Upper: 360, Verdict: domain.VerdictOK},
		},
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("job-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"job_id":"job-1"`)
	assert.Contains(t, string(msg.Value), `"clipped":3`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "outcome", msg.Headers[0].Key)
	assert.Equal(t, []byte(domain.OutcomeClipped), msg.Headers[0].Value)
	assert.Equal(t, "checked_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
	assert.Equal(t, "clipped", msg.Headers[2].Key)
	assert.Equal(t, []byte("q"), msg.Headers[2].Value)
}

func TestSerializeToMessage_InvalidReport(t *testing.T) {
	report := domain.Report{
		JobID:  "job-2",
		Issues: []string{`Variable "z" (Geopotential) contains only NaN values.`},
		Variables: map[string]domain.VariableReport{
			"z": {NaNCount: 12, Verdict: domain.VerdictAllMissing, Lower: -5000, Upper: 70000},
		},
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, false, decoded["valid"])
	z := decoded["variables"].(map[string]any)["z"].(map[string]any)
	assert.Nil(t, z["min"])
	assert.Nil(t, z["max"])
	assert.Equal(t, []byte(domain.OutcomeInvalid), msg.Headers[0].Value)
	assert.Empty(t, msg.Headers[2].Value)
}
