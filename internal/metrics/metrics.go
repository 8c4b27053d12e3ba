// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 同期処理や通知スケジューラから利用する。
type MetricsCollector interface {
	RecordLoad(mode string)
	RecordRemoteWrite(entity string, ok bool)
	RecordRemoteWriteLatency(duration time.Duration)
	RecordMigration(changed bool)
	RecordConnectivity(online bool)
	RecordNotificationFired(trigger string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loads              *prometheus.CounterVec
	remoteWrites       *prometheus.CounterVec
	remoteWriteLatency prometheus.Histogram
	migrations         *prometheus.CounterVec
	online             prometheus.Gauge
	notifications      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushmyself_load_total",
			Help: "Loadの実行回数（モード別）",
		}, []string{"mode"}),
		remoteWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushmyself_remote_write_total",
			Help: "ネットワークストアへの書き込み回数（エンティティ・結果別）",
		}, []string{"entity", "result"}),
		remoteWriteLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pushmyself_remote_write_latency_seconds",
			Help:    "1日分の書き込みファンアウトのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushmyself_migration_total",
			Help: "ローカルデータ移行の実行回数",
		}, []string{"changed"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pushmyself_online",
			Help: "直近の接続確認でオンラインなら1",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pushmyself_notification_fired_total",
			Help: "配信した通知の数（契機別）",
		}, []string{"trigger"}),
	}

	reg.MustRegister(
		c.loads,
		c.remoteWrites,
		c.remoteWriteLatency,
		c.migrations,
		c.online,
		c.notifications,
	)

	return c
}

// RecordLoad はLoadの実行をモード（online / partial / offline / fallback）別に記録する。
func (c *Collector) RecordLoad(mode string) {
	c.loads.WithLabelValues(mode).Inc()
}

// RecordRemoteWrite はネットワークストアへの書き込み結果を記録する。
func (c *Collector) RecordRemoteWrite(entity string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	c.remoteWrites.WithLabelValues(entity, result).Inc()
}

// RecordRemoteWriteLatency はファンアウト全体のレイテンシを記録する。
func (c *Collector) RecordRemoteWriteLatency(duration time.Duration) {
	c.remoteWriteLatency.Observe(duration.Seconds())
}

// RecordMigration はローカルデータ移行の実行を記録する。
func (c *Collector) RecordMigration(changed bool) {
	c.migrations.WithLabelValues(strconv.FormatBool(changed)).Inc()
}

// RecordConnectivity は接続状態を記録する。
func (c *Collector) RecordConnectivity(online bool) {
	if online {
		c.online.Set(1)
		return
	}
	c.online.Set(0)
}

// RecordNotificationFired は通知の配信を記録する。
func (c *Collector) RecordNotificationFired(trigger string) {
	c.notifications.WithLabelValues(trigger).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordLoad(string)                      {}
func (NopCollector) RecordRemoteWrite(string, bool)         {}
func (NopCollector) RecordRemoteWriteLatency(time.Duration) {}
func (NopCollector) RecordMigration(bool)                   {}
func (NopCollector) RecordConnectivity(bool)                {}
func (NopCollector) RecordNotificationFired(string)         {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
