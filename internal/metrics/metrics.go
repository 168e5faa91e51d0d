// Package metrics exposes Prometheus counters for the bot's conversational
// and delivery activity, plus the HTTP endpoint serving them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpdatesTotal counts inbound Telegram updates by type (message, callback).
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_updates_total",
			Help: "Total number of inbound Telegram updates by type",
		},
		[]string{"type"},
	)

	// StageStarted counts stage starts by stage (survey, case).
	StageStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_stage_started_total",
			Help: "Total number of stage starts by stage",
		},
		[]string{"stage"},
	)

	// StageFinished counts stage terminations by stage and outcome
	// (completed, cancelled).
	StageFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_stage_finished_total",
			Help: "Total number of stage terminations by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// NotificationsSent counts immediate staff-group deliveries.
	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_notifications_sent_total",
			Help: "Total number of staff notifications sent immediately",
		},
	)

	// NotificationsDeferred counts deliveries postponed to the window.
	NotificationsDeferred = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_notifications_deferred_total",
			Help: "Total number of staff notifications deferred outside the window",
		},
	)

	// SweepFailures counts per-item scheduler flush failures.
	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_sweep_failures_total",
			Help: "Total number of deferred-notification flush failures",
		},
	)
)

// Serve runs the metrics/health endpoint until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
