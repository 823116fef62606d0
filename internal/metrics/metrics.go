// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・チェックアウト検証・照合ワーカーから利用する。
type MetricsCollector interface {
	RecordPublishSuccess()
	RecordPublishFailure()
	RecordRetractSuccess()
	RecordRetractFailure()
	RecordRejection(kind string)
	RecordValidationLatency(duration time.Duration)
	RecordReconcileCycle(republished int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	publishSuccess    prometheus.Counter
	publishFail       prometheus.Counter
	retractSuccess    prometheus.Counter
	retractFail       prometheus.Counter
	rejections        *prometheus.CounterVec
	validationLatency prometheus.Histogram
	reconcileCycles   prometheus.Counter
	reconcilePublished prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publishSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_publish_success_total",
			Help: "カタログへの公開文書書き込み成功の合計数",
		}),
		publishFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_publish_fail_total",
			Help: "カタログへの公開文書書き込み失敗の合計数",
		}),
		retractSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_retract_success_total",
			Help: "カタログからの公開文書削除成功の合計数",
		}),
		retractFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_retract_fail_total",
			Help: "カタログからの公開文書削除失敗の合計数",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesperiod_checkout_rejections_total",
			Help: "チェックアウト検証での拒否数（種別ラベル付き）",
		}, []string{"kind"}),
		validationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesperiod_validation_latency_seconds",
			Help:    "チェックアウト検証のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_reconcile_cycles_total",
			Help: "照合ワーカーの実行サイクル合計数",
		}),
		reconcilePublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesperiod_reconcile_republished_total",
			Help: "照合ワーカーが再公開した文書の合計数",
		}),
	}

	reg.MustRegister(
		c.publishSuccess,
		c.publishFail,
		c.retractSuccess,
		c.retractFail,
		c.rejections,
		c.validationLatency,
		c.reconcileCycles,
		c.reconcilePublished,
	)

	return c
}

// RecordPublishSuccess は公開文書の書き込み成功を記録する。
func (c *Collector) RecordPublishSuccess() {
	c.publishSuccess.Inc()
}

// RecordPublishFailure は公開文書の書き込み失敗を記録する。
func (c *Collector) RecordPublishFailure() {
	c.publishFail.Inc()
}

// RecordRetractSuccess は公開文書の削除成功を記録する。
func (c *Collector) RecordRetractSuccess() {
	c.retractSuccess.Inc()
}

// RecordRetractFailure は公開文書の削除失敗を記録する。
func (c *Collector) RecordRetractFailure() {
	c.retractFail.Inc()
}

// RecordRejection はチェックアウト検証での拒否を種別付きで記録する。
// kindは "upcoming" または "expired"。
func (c *Collector) RecordRejection(kind string) {
	c.rejections.WithLabelValues(kind).Inc()
}

// RecordValidationLatency はチェックアウト検証のレイテンシを記録する。
func (c *Collector) RecordValidationLatency(duration time.Duration) {
	c.validationLatency.Observe(duration.Seconds())
}

// RecordReconcileCycle は照合サイクルの完了と再公開件数を記録する。
func (c *Collector) RecordReconcileCycle(republished int) {
	c.reconcileCycles.Inc()
	c.reconcilePublished.Add(float64(republished))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
