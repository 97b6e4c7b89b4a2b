// Package observability collects live counters for the relay and
// exposes them as a snapshot for the health_check event and the
// inspect endpoint.
package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// RouterStats aggregates every metric exposed by health_check.
type RouterStats struct {
	// --- ROUTER METRICS ---
	ActiveConnections int64  `json:"active_connections"`
	EventsRouted      uint64 `json:"events_routed"`
	Deliveries        uint64 `json:"deliveries"`
	DeliveryFailures  uint64 `json:"delivery_failures"`
	HandlerFaults     uint64 `json:"handler_faults"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	RssMb      float64 `json:"rss_mb"`
	CpuPercent float64 `json:"cpu_percent"`
	UptimeSec  int64   `json:"uptime_sec"`
}

// MonitoringManager tracks real-time telemetry for the router.
// Counters are atomic; the process-level samples (RSS, CPU) are pushed
// in by the stats worker on its own cadence.
type MonitoringManager struct {
	log     *slog.Logger
	started time.Time

	activeConnections int64
	eventsRouted      uint64
	deliveries        uint64
	deliveryFailures  uint64
	handlerFaults     uint64

	mu         sync.RWMutex
	rssMb      float64
	cpuPercent float64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, started: time.Now()}
}

func (mm *MonitoringManager) IncrConnections() {
	atomic.AddInt64(&mm.activeConnections, 1)
}

func (mm *MonitoringManager) DecrConnections() {
	atomic.AddInt64(&mm.activeConnections, -1)
}

func (mm *MonitoringManager) IncrEventsRouted() {
	atomic.AddUint64(&mm.eventsRouted, 1)
}

func (mm *MonitoringManager) IncrDeliveries() {
	atomic.AddUint64(&mm.deliveries, 1)
}

func (mm *MonitoringManager) IncrDeliveryFailures() {
	atomic.AddUint64(&mm.deliveryFailures, 1)
}

func (mm *MonitoringManager) IncrHandlerFaults() {
	atomic.AddUint64(&mm.handlerFaults, 1)
}

// SetProcessSample records the latest process-level measurements.
func (mm *MonitoringManager) SetProcessSample(rssMb, cpuPercent float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.rssMb = rssMb
	mm.cpuPercent = cpuPercent
}

// Snapshot assembles the current stats, mixing atomic counters, the
// Go runtime's memory view and the last process sample.
func (mm *MonitoringManager) Snapshot() RouterStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	mm.mu.RLock()
	rss, cpu := mm.rssMb, mm.cpuPercent
	mm.mu.RUnlock()

	return RouterStats{
		ActiveConnections: atomic.LoadInt64(&mm.activeConnections),
		EventsRouted:      atomic.LoadUint64(&mm.eventsRouted),
		Deliveries:        atomic.LoadUint64(&mm.deliveries),
		DeliveryFailures:  atomic.LoadUint64(&mm.deliveryFailures),
		HandlerFaults:     atomic.LoadUint64(&mm.handlerFaults),
		AllocMemMb:        memStats.Alloc / 1024 / 1024,
		NumGC:             memStats.NumGC,
		RssMb:             rss,
		CpuPercent:        cpu,
		UptimeSec:         int64(time.Since(mm.started).Seconds()),
	}
}
