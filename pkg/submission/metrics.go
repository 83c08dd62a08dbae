package submission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "forms_submissions_total",
	Help: "Submission attempts by provider and outcome category.",
}, []string{"provider", "category"})
