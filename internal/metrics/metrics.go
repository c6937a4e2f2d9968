package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// operation: create/update/delete, outcome: success/failure
	authoringOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_authoring_operations_total",
			Help: "Total number of quiz authoring operations",
		},
		[]string{"operation", "outcome"},
	)

	authoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_authoring_duration_seconds",
			Help:    "Time spent in quiz authoring operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	submissionsGraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_submissions_graded_total",
			Help: "Total number of graded submissions",
		},
	)

	scoreRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_submission_score_ratio",
			Help:    "scoreTotal / totalQuizPoints of graded submissions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	orphanedQuestions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_orphaned_questions_total",
			Help: "Questions left unreferenced by shrinking quiz updates",
		},
	)
)

// AuthoringTimer starts timing an authoring operation; call the returned func with the error result.
func AuthoringTimer(operation string) func(err error) {
	timer := prometheus.NewTimer(authoringDuration.WithLabelValues(operation))
	return func(err error) {
		timer.ObserveDuration()
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
		}
		authoringOperations.WithLabelValues(operation, outcome).Inc()
	}
}

func SubmissionGraded(scoreTotal, totalQuizPoints float64) {
	submissionsGraded.Inc()
	if totalQuizPoints > 0 {
		scoreRatio.Observe(scoreTotal / totalQuizPoints)
	}
}

func QuestionsOrphaned(n int) {
	if n > 0 {
		orphanedQuestions.Add(float64(n))
	}
}
