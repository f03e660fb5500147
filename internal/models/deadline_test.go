package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeadline(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-06-01T12:00:00Z", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"2025-06-01T14:00:00+02:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"2025-06-01T12:00:00.5Z", time.Date(2025, 6, 1, 12, 0, 0, 500000000, time.UTC)},
		{"2025-06-01T12:00:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"2025-06-01T12:00:00.250", time.Date(2025, 6, 1, 12, 0, 0, 250000000, time.UTC)},
		{"2025-06-01T12:00", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDeadline(tc.in)
			require.NoError(t, err)
			got := time.Time(d)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDeadline_Invalid(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2025-06-01", "2025-13-01T12:00", "01.06.2025 12:00"} {
		_, err := ParseDeadline(in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, in)
		assert.Equal(t, "deadline", verr.Field)
		assert.Equal(t, "deadline is invalid", verr.Message)
	}
}

func TestDeadline_JSON(t *testing.T) {
	var req TaskCreateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","deadline":"2025-06-01T12:00"}`), &req))
	require.NotNil(t, req.Deadline)
	assert.True(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Equal(*req.Deadline.Time()))

	out, err := json.Marshal(req.Deadline)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-06-01T12:00:00Z"`, string(out))

	var verr *ValidationError
	err = json.Unmarshal([]byte(`{"title":"x","deadline":12}`), &req)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deadline is invalid", verr.Message)

	var upd TaskUpdateRequest
	err = json.Unmarshal([]byte(`{"deadline":"soon"}`), &upd)
	require.ErrorAs(t, err, &verr)

	require.NoError(t, json.Unmarshal([]byte(`{"deadline":"2025-06-01T12:00:00"}`), &upd))
	changes := upd.Changes()
	got, ok := changes["deadline"].(*time.Time)
	require.True(t, ok)
	assert.True(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Equal(*got))

	var nilDeadline *Deadline
	assert.Nil(t, nilDeadline.Time())
}
