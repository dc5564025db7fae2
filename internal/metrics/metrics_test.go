package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"duocall/backend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RoomLifecycle(t *testing.T) {
	rec := metrics.New(prometheus.NewRegistry())

	rec.RoomCreated()
	rec.RoomCreated()
	rec.ParticipantJoined()
	rec.ParticipantJoined()
	rec.ParticipantJoined()
	rec.RoomDestroyed("expired")
	rec.ParticipantsLeft(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.RoomsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.RoomsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ParticipantsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.RoomsDestroyed.WithLabelValues("expired")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *metrics.Recorder

	assert.NotPanics(t, func() {
		rec.RoomCreated()
		rec.RoomDestroyed("empty")
		rec.ParticipantJoined()
		rec.ParticipantsLeft(1)
		rec.MessageSent()
		rec.JoinRejected("full")
	})
}

func TestRecorder_Handler(t *testing.T) {
	rec := metrics.New(prometheus.NewRegistry())
	rec.JoinRejected("full")

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `duocall_join_rejections_total{reason="full"} 1`)
}
