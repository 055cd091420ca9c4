package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/zwavelink/zwave-driver/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	SerialRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_rx_frames_total",
		Help: "Total Serial API frames decoded from the serial link (ACK/NAK/CAN/Data).",
	})
	SerialTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_tx_frames_total",
		Help: "Total Serial API frames written to the serial link.",
	})
	SerialGarbageFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_garbage_frames_total",
		Help: "Total bytes discarded while resynchronizing to the next frame start.",
	})
	CommandOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "command_machine_outcomes_total",
		Help: "Serial API command state machine outcomes by result.",
	}, []string{"outcome"})
	UnsolicitedCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unsolicited_commands_total",
		Help: "Total unsolicited Controller-origin commands received.",
	})
	AwaiterTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "awaiter_timeouts_total",
		Help: "Total AwaitCC registrations that expired with no matching command class.",
	})
	AwaiterMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "awaiter_matches_total",
		Help: "Total AwaitCC registrations fulfilled by a matching command class.",
	})
	SecurityFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_failures_total",
		Help: "Total S0 security failures by reason (mac_mismatch, nonce_expired, no_manager).",
	}, []string{"reason"})
	CacheWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_writes_total",
		Help: "Total value-cache writes applied from Report command classes.",
	})
	CacheMirrorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_mirror_failures_total",
		Help: "Total best-effort cache mirror write/delete failures.",
	})
	TCPRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_rx_frames_total",
		Help: "Total event-feed frames received from TCP clients.",
	})
	TCPTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_tx_frames_total",
		Help: "Total event-feed frames sent to TCP clients.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_frames_total",
		Help: "Total event-feed frames dropped by hub due to slow clients.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_kicked_clients_total",
		Help: "Total clients disconnected due to backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g., max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_active_clients",
		Help: "Current number of active connected clients.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_broadcast_fanout",
		Help: "Number of clients targeted in the most recent broadcast.",
	})
	HubQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_max",
		Help: "Observed max queued frames among clients since last sample window.",
	})
	HubQueueDepthAvg = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_avg",
		Help: "Approximate average queued frames per client in last sample.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (checksum mismatch, truncated, unknown start byte).",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTCPRead     = "tcp_read"
	ErrTCPWrite    = "tcp_write"
	ErrHandshake   = "handshake"
	ErrSerialWrite = "serial_write"
	ErrSerialRead  = "serial_read"
	ErrCCParse     = "cc_parse"
	ErrCCSerialize = "cc_serialize"
)

// Security failure reason label constants.
const (
	ReasonMACMismatch  = "mac_mismatch"
	ReasonNonceExpired = "nonce_expired"
	ReasonNoManager    = "no_manager"
)

// StartHTTP serves Prometheus metrics at /metrics and the readiness probe
// at /ready on a new mux listening on addr, from a background goroutine.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localSerialRx    uint64
	localSerialTx    uint64
	localTCPRx       uint64
	localTCPTx       uint64
	localHubDrop     uint64
	localHubKick     uint64
	localHubReject   uint64
	localErrors      uint64
	localHubClients  uint64
	localFanout      uint64
	localMalformed   uint64
	localQDMax       uint64
	localQDAvg       uint64
	localAwaitTimer  uint64
	localAwaitMatch  uint64
	localCacheWrites uint64
	localSecFailures uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	SerialRx        uint64
	SerialTx        uint64
	TCPRx           uint64
	TCPTx           uint64
	HubDrops        uint64
	HubKicks        uint64
	HubRejects      uint64
	Errors          uint64 // sum across error labels
	HubClients      uint64
	Fanout          uint64
	Malformed       uint64
	QueueDepthMax   uint64
	QueueDepthAvg   uint64
	AwaiterTimeouts uint64
	AwaiterMatches  uint64
	CacheWrites     uint64
	SecurityFails   uint64
}

func Snap() Snapshot {
	return Snapshot{
		SerialRx:        atomic.LoadUint64(&localSerialRx),
		SerialTx:        atomic.LoadUint64(&localSerialTx),
		TCPRx:           atomic.LoadUint64(&localTCPRx),
		TCPTx:           atomic.LoadUint64(&localTCPTx),
		HubDrops:        atomic.LoadUint64(&localHubDrop),
		HubKicks:        atomic.LoadUint64(&localHubKick),
		HubRejects:      atomic.LoadUint64(&localHubReject),
		Errors:          atomic.LoadUint64(&localErrors),
		HubClients:      atomic.LoadUint64(&localHubClients),
		Fanout:          atomic.LoadUint64(&localFanout),
		Malformed:       atomic.LoadUint64(&localMalformed),
		QueueDepthMax:   atomic.LoadUint64(&localQDMax),
		QueueDepthAvg:   atomic.LoadUint64(&localQDAvg),
		AwaiterTimeouts: atomic.LoadUint64(&localAwaitTimer),
		AwaiterMatches:  atomic.LoadUint64(&localAwaitMatch),
		CacheWrites:     atomic.LoadUint64(&localCacheWrites),
		SecurityFails:   atomic.LoadUint64(&localSecFailures),
	}
}

// Wrapper helpers to keep call sites simple.
func IncSerialRx() {
	SerialRxFrames.Inc()
	atomic.AddUint64(&localSerialRx, 1)
}

func IncSerialTx() {
	SerialTxFrames.Inc()
	atomic.AddUint64(&localSerialTx, 1)
}

func IncSerialGarbage(n int) {
	SerialGarbageFrames.Add(float64(n))
}

func IncCommandOutcome(outcome string) {
	CommandOutcomes.WithLabelValues(outcome).Inc()
}

func IncUnsolicited() {
	UnsolicitedCommands.Inc()
}

func IncAwaiterTimeout() {
	AwaiterTimeouts.Inc()
	atomic.AddUint64(&localAwaitTimer, 1)
}

func IncAwaiterMatch() {
	AwaiterMatches.Inc()
	atomic.AddUint64(&localAwaitMatch, 1)
}

func IncSecurityFailure(reason string) {
	SecurityFailures.WithLabelValues(reason).Inc()
	atomic.AddUint64(&localSecFailures, 1)
}

func IncCacheWrite() {
	CacheWrites.Inc()
	atomic.AddUint64(&localCacheWrites, 1)
}

func IncCacheMirrorFailure() {
	CacheMirrorFailures.Inc()
}

func IncTCPRx() {
	TCPRxFrames.Inc()
	atomic.AddUint64(&localTCPRx, 1)
}

func AddTCPTx(n int) {
	TCPTxFrames.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncHubDrop() {
	HubDroppedFrames.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncHubKick() {
	HubKickedClients.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func IncHubReject() {
	HubRejectedClients.Inc()
	atomic.AddUint64(&localHubReject, 1)
}

func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}

func SetBroadcastFanout(n int) {
	HubBroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// SetQueueDepth records a snapshot of max and avg queue depth.
func SetQueueDepth(max, avg int) {
	HubQueueDepthMax.Set(float64(max))
	HubQueueDepthAvg.Set(float64(avg))
	atomic.StoreUint64(&localQDMax, uint64(max))
	atomic.StoreUint64(&localQDAvg, uint64(avg))
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register common error/outcome label series so the first
	// occurrence does not pay registration latency.
	for _, lbl := range []string{
		ErrTCPRead, ErrTCPWrite, ErrHandshake,
		ErrSerialWrite, ErrSerialRead, ErrCCParse, ErrCCSerialize,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
	for _, reason := range []string{ReasonMACMismatch, ReasonNonceExpired, ReasonNoManager} {
		SecurityFailures.WithLabelValues(reason).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
