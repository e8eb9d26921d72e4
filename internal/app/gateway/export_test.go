package gateway

import "github.com/prometheus/client_golang/prometheus"

func CallsCounter(op, outcome string) prometheus.Counter {
	return callsTotal.WithLabelValues(op, outcome)
}
