// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the habit tracking backend.
var (
	// Counters.
	CheckinsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_recorded_total",
			Help: "Total number of checkin records upserted",
		},
		[]string{"status"},
	)

	CheckinsAmendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_amended_total",
			Help: "Total number of checkin amendments",
		},
		[]string{"status"},
	)

	CheckinsRetractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_retracted_total",
			Help: "Total number of checkin retractions",
		},
		[]string{"status"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "derived_cache_lookups_total",
			Help: "Lookups against the derived streak/progress caches",
		},
		[]string{"kind", "result"}, // kind: streak|progress, result: hit|miss
	)

	// Gauges.
	AchievementHolders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "achievement_holders",
			Help: "Current number of users holding each achievement",
		},
		[]string{"achievement"},
	)

	EvaluationLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "achievement_evaluation_last_run_timestamp",
			Help: "Unix timestamp of the last achievement evaluation run",
		},
	)

	// Histograms.
	StreakLengthDays = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streak_length_days",
			Help:    "Computed streak lengths in scheduled days",
			Buckets: prometheus.LinearBuckets(0, 7, 10), // 0 to 63 days
		},
		[]string{"kind"}, // current|longest
	)

	EvaluationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "achievement_evaluation_duration_seconds",
			Help:    "Time taken to run an achievement evaluation pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Achievement gamification metrics.
	AchievementsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement"},
	)

	EvaluationJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievement_evaluation_jobs_run_total",
			Help: "Total achievement evaluation job executions",
		},
		[]string{"status"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total push notifications sent to the webhook gateway",
		},
		[]string{"status"},
	)
)

// RecordCheckinRecorded records a checkin upsert.
func RecordCheckinRecorded(status string) {
	CheckinsRecordedTotal.WithLabelValues(status).Inc()
}

// RecordCheckinAmended records a checkin amendment.
func RecordCheckinAmended(status string) {
	CheckinsAmendedTotal.WithLabelValues(status).Inc()
}

// RecordCheckinRetracted records a checkin retraction.
func RecordCheckinRetracted(status string) {
	CheckinsRetractedTotal.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a derived-cache lookup result.
func RecordCacheLookup(kind, result string) {
	CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordAchievementUnlocked records an achievement unlock event.
func RecordAchievementUnlocked(key string) {
	AchievementsUnlockedTotal.WithLabelValues(key).Inc()
}

// SetAchievementHolders sets the number of holders for an achievement.
func SetAchievementHolders(key string, count int) {
	AchievementHolders.WithLabelValues(key).Set(float64(count))
}

// ObserveStreakLength observes a computed streak length.
func ObserveStreakLength(kind string, days int) {
	StreakLengthDays.WithLabelValues(kind).Observe(float64(days))
}

// RecordEvaluationRun records an achievement evaluation job execution.
func RecordEvaluationRun(status string) {
	EvaluationJobsRunTotal.WithLabelValues(status).Inc()
}

// ObserveEvaluationDuration observes the duration of an evaluation pass.
func ObserveEvaluationDuration(seconds float64) {
	EvaluationDurationSeconds.Observe(seconds)
}

// SetEvaluationLastRun sets the timestamp of the last evaluation run.
func SetEvaluationLastRun() {
	EvaluationLastRunTimestamp.SetToCurrentTime()
}

// RecordNotificationSent records a push notification attempt.
func RecordNotificationSent(status string) {
	NotificationsSentTotal.WithLabelValues(status).Inc()
}
