package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"academy-backend/internal/course"
)

var (
	metricsOnce           sync.Once
	progressEventsTotal   *prometheus.CounterVec
	catalogLoadsTotal     *prometheus.CounterVec
	lessonsCompletedTotal *prometheus.CounterVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		progressEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Subsystem: "progress",
			Name:      "events_total",
			Help:      "Progress events handled, by event and outcome",
		}, []string{"event", "outcome"})

		lessonsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Subsystem: "progress",
			Name:      "lessons_completed_total",
			Help:      "Lessons that transitioned to completed",
		}, []string{"course"})

		catalogLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Subsystem: "catalog",
			Name:      "loads_total",
			Help:      "Course loads, by source",
		}, []string{"source"})
	})
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case IsValidationError(err):
		return "invalid"
	case IsNotFound(err):
		return "not_found"
	case course.IsAccessDenied(err):
		return "denied"
	case course.IsUnknownLesson(err):
		return "unknown_lesson"
	case course.IsMalformedCourse(err):
		return "malformed"
	default:
		return "error"
	}
}
