package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketchain/logx"
)

// TxRejectedReason labels the rejected_tx_count counter.
type TxRejectedReason string

var (
	TxInvalidSignature TxRejectedReason = "invalid_signature"
	TxInvalidFormat    TxRejectedReason = "invalid_format"
	TxDuplicated       TxRejectedReason = "duplicated"
	TxMempoolFull      TxRejectedReason = "mempool_full"
	TxRejectedUnknown  TxRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds prometheus.Gauge
	mempoolSize       prometheus.Gauge
	blockHeight       prometheus.Gauge
	blockTime         prometheus.Histogram
	proveDuration     prometheus.Histogram
	proveIterations   prometheus.Histogram
	txInBlock         prometheus.Histogram
	ingressTxCount    prometheus.Counter
	rejectedTxCount   *prometheus.CounterVec
	panicCount        prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketchain_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node start",
			},
		),
		mempoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketchain_node_mempool_size",
				Help: "The total pending transactions queued in node's mempool",
			},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketchain_node_block_height",
				Help: "Index of the current chain head",
			},
		),
		blockTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "marketchain_node_block_time",
				Help: "Duration in seconds between two consecutive appended blocks",
			},
		),
		proveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketchain_node_prove_duration_seconds",
				Help:    "Wall time spent in the proof-of-work nonce search per block",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
			},
		),
		proveIterations: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketchain_node_prove_iterations",
				Help:    "Number of hash evaluations per proof-of-work search",
				Buckets: prometheus.ExponentialBuckets(16, 4, 12),
			},
		),
		txInBlock: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "marketchain_node_tx_in_block",
				Help: "Number of transactions committed per block",
			},
		),
		ingressTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketchain_node_ingress_tx_count",
				Help: "The total number of transactions submitted to this node",
			},
		),
		rejectedTxCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketchain_node_rejected_tx_count",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketchain_node_panic_count",
				Help: "The total number of recovered panics in background goroutines",
			},
		),
	}
}

var metrics = newNodePromMetrics()

func SetNodeUp() {
	metrics.nodeUpUnixSeconds.Set(float64(time.Now().Unix()))
}

func SetMempoolSize(n int) {
	metrics.mempoolSize.Set(float64(n))
}

func SetBlockHeight(index uint64) {
	metrics.blockHeight.Set(float64(index))
}

func ObserveBlockTime(seconds float64) {
	metrics.blockTime.Observe(seconds)
}

func ObserveProve(duration time.Duration, iterations uint64) {
	metrics.proveDuration.Observe(duration.Seconds())
	metrics.proveIterations.Observe(float64(iterations))
}

func ObserveTxInBlock(n int) {
	metrics.txInBlock.Observe(float64(n))
}

func IncreaseIngressTxCount() {
	metrics.ingressTxCount.Inc()
}

func IncreaseRejectedTxCount(reason TxRejectedReason) {
	metrics.rejectedTxCount.WithLabelValues(string(reason)).Inc()
}

func IncreasePanicCount() {
	metrics.panicCount.Inc()
}

// Serve exposes the prometheus scrape endpoint on addr.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logx.Error("MONITORING", "metrics server stopped: ", err)
		}
	}()
}
