// Package metrics содержит счётчики Prometheus для конвейера диспутов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DisputesCreated - количество созданных диспутов (= списанных кредитов).
	DisputesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_created_total",
		Help: "Number of disputes created and credits debited",
	})

	// DisputesCompleted - количество диспутов, дошедших до letters_ready.
	DisputesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "disputes_completed_total",
		Help: "Number of disputes that reached letters_ready",
	})

	// DisputesFailed - количество диспутов, завершившихся ошибкой, по шагам.
	DisputesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "disputes_failed_total",
		Help: "Number of disputes that ended in error state",
	}, []string{"step"})

	// CreditsGranted - количество кредитов, начисленных платёжными вебхуками.
	CreditsGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credits_granted_total",
		Help: "Number of credits granted by payment webhooks",
	})
)
