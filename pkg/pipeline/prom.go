// 文件: pkg/pipeline/prom.go
// Prometheus 指标

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_run_total",
			Help: "Total number of analytics runs",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analytics_run_duration_seconds",
			Help:    "Analytics run duration in seconds, sinks included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_records_total",
			Help: "Settlement records consumed",
		},
		[]string{"kind"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_behavior_alerts_total",
			Help: "Behavior alerts detected",
		},
		[]string{"type", "severity"},
	)

	sinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sink_errors_total",
			Help: "Failed sink writes",
		},
		[]string{"sink"},
	)

	// 按策略的最新结果
	strategyTotalScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analytics_strategy_total_score",
			Help: "Latest total score per strategy",
		},
		[]string{"strategy"},
	)

	strategyBehaviorRisk = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analytics_strategy_behavior_risk_score",
			Help: "Latest behavior risk score per strategy",
		},
		[]string{"strategy"},
	)
)

func observeResult(r *Result) {
	recordsTotal.WithLabelValues("equity").Add(float64(len(r.Batch.Equity)))
	recordsTotal.WithLabelValues("position").Add(float64(len(r.Batch.Positions)))
	recordsTotal.WithLabelValues("trade").Add(float64(len(r.Batch.Trades)))

	for _, rec := range r.Records {
		alertsTotal.WithLabelValues(string(rec.Alert.Type), string(rec.Alert.Severity)).Inc()
	}
	for _, s := range r.Scores {
		strategyTotalScore.WithLabelValues(s.StrategyCode).Set(s.TotalScore)
	}
	for code, s := range r.Summaries {
		strategyBehaviorRisk.WithLabelValues(code).Set(float64(s.RiskScore))
	}
}
