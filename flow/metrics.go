package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type operation string

const (
	opGet         operation = "get"
	opPut         operation = "put"
	opPutIfAbsent operation = "putIfAbsent"
)

var (
	failedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvflow_bench_requests_fail",
		Help: "Number of failed store requests, by request type.",
	}, []string{"type"})
	transactionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvflow_bench_transaction_duration_seconds",
		Help:    "Latency of completed transactions.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
	})
)

func init() {

	for _, op := range []operation{opGet, opPut, opPutIfAbsent} {
		failedRequests.WithLabelValues(string(op))
	}

}
