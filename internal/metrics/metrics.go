// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/kakeibo/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス・取引サービス・HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordRegister(success bool)
	RecordLogin(success bool)
	RecordTransactionWritten(kind model.TransactionKind)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registerTotal       *prometheus.CounterVec
	loginTotal          *prometheus.CounterVec
	transactionsWritten *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	requestDuration     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_register_total",
			Help: "ユーザー登録試行の結果別合計数",
		}, []string{"result"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		transactionsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_transactions_written_total",
			Help: "作成・更新された取引の種別合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kakeibo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kakeibo_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registerTotal,
		c.loginTotal,
		c.transactionsWritten,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// resultLabel は成否をラベル値に変換する。
func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordRegister はユーザー登録試行の結果を記録する。
func (c *Collector) RecordRegister(success bool) {
	c.registerTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.loginTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordTransactionWritten は取引の書き込みを種別ラベル付きで記録する。
func (c *Collector) RecordTransactionWritten(kind model.TransactionKind) {
	c.transactionsWritten.WithLabelValues(string(kind)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
