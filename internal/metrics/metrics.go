// Package metrics exposes room coordinator counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the coordinator's instruments. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	RoomsActive        prometheus.Gauge
	ParticipantsActive prometheus.Gauge
	RoomsCreated       prometheus.Counter
	RoomsDestroyed     *prometheus.CounterVec
	Messages           prometheus.Counter
	JoinRejections     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg.
func New(reg *prometheus.Registry) *Recorder {
	r := &Recorder{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duocall_rooms_active",
			Help: "Rooms currently live.",
		}),
		ParticipantsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duocall_participants_active",
			Help: "Participants currently in a room.",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_rooms_created_total",
			Help: "Rooms created.",
		}),
		RoomsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duocall_rooms_destroyed_total",
			Help: "Rooms destroyed, by reason.",
		}, []string{"reason"}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duocall_messages_total",
			Help: "Chat messages accepted.",
		}),
		JoinRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duocall_join_rejections_total",
			Help: "Rejected joins, by reason.",
		}, []string{"reason"}),
		gatherer: reg,
	}
	reg.MustRegister(
		r.RoomsActive,
		r.ParticipantsActive,
		r.RoomsCreated,
		r.RoomsDestroyed,
		r.Messages,
		r.JoinRejections,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

func (r *Recorder) RoomCreated() {
	if r == nil {
		return
	}
	r.RoomsCreated.Inc()
	r.RoomsActive.Inc()
}

func (r *Recorder) RoomDestroyed(reason string) {
	if r == nil {
		return
	}
	r.RoomsDestroyed.WithLabelValues(reason).Inc()
	r.RoomsActive.Dec()
}

func (r *Recorder) ParticipantJoined() {
	if r == nil {
		return
	}
	r.ParticipantsActive.Inc()
}

func (r *Recorder) ParticipantsLeft(n int) {
	if r == nil {
		return
	}
	r.ParticipantsActive.Sub(float64(n))
}

func (r *Recorder) MessageSent() {
	if r == nil {
		return
	}
	r.Messages.Inc()
}

func (r *Recorder) JoinRejected(reason string) {
	if r == nil {
		return
	}
	r.JoinRejections.WithLabelValues(reason).Inc()
}
