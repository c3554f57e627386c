// Package metrics 定义推荐引擎的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReasonJobsInFlight 正在处理的理由生成任务数
	ReasonJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reason_jobs_in_flight",
			Help: "Number of reason generation jobs currently being processed",
		},
	)

	// ReasonJobsDropped 因并发上限被丢弃的任务数
	ReasonJobsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reason_jobs_dropped_total",
			Help: "Total number of reason generation jobs dropped because the in-flight cap was reached",
		},
	)

	// ReasonBatches 每个名字分组一次补全调用，status 取值见 pipeline.Processor
	ReasonBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reason_batches_total",
			Help: "Total number of reason completion calls by status",
		},
		[]string{"status"},
	)

	CandidateSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_source_failures_total",
			Help: "Total number of candidate sources that degraded to an empty result",
		},
		[]string{"source"},
	)

	FilterRemovedNames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filter_removed_names_total",
			Help: "Total number of names removed by each filter stage",
		},
		[]string{"stage"},
	)

	Suggestions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suggestions_total",
			Help: "Total number of suggestion requests served",
		},
	)
)
