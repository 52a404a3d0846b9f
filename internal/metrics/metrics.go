// metrics — Prometheus-счётчики шлюза. Экспозиция — promhttp в main.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viridial_session_logins_total",
		Help: "Исходы попыток входа (result: ok|error).",
	}, []string{"result"})

	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viridial_session_refreshes_total",
		Help: "Исходы обновления пары токенов (result: ok|error).",
	}, []string{"result"})
)

// Session реализует session.Metrics поверх пакетных счётчиков.
type Session struct{}

func NewSession() Session { return Session{} }

func (Session) LoginResult(ok bool)   { loginsTotal.WithLabelValues(result(ok)).Inc() }
func (Session) RefreshResult(ok bool) { refreshesTotal.WithLabelValues(result(ok)).Inc() }

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
