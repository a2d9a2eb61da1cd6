package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "stream",
		Name:      "records_total",
		Help:      "Stream records decoded, by event name.",
	}, []string{"event"})

	parseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "copilot",
		Subsystem: "stream",
		Name:      "parse_errors_total",
		Help:      "Data lines that were not valid JSON, by event name.",
	}, []string{"event"})
)
