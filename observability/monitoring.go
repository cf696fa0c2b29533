package observability

import (
	"chat-sync/domain/event"
	"chat-sync/errors"
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Gauges are point-in-time sizes of the live state.
type Gauges struct {
	Connections int `json:"connections"`
	Identities  int `json:"identities"`
	Rooms       int `json:"rooms"`
}

// MonitoringStats is what the debug endpoint serves.
type MonitoringStats struct {
	Gauges

	// --- DELIVERY ---
	Delivered    uint64                `json:"delivered"`
	Dropped      uint64                `json:"dropped"`
	Evicted      uint64                `json:"evicted"`
	EventsByType map[event.Type]uint64 `json:"events_by_type"`

	// --- ENGINE ---
	Accepted       uint64                 `json:"accepted"`
	RejectedByCode map[errors.Code]uint64 `json:"rejected_by_code"`

	// --- SYSTEM ---
	RSSBytes    uint64    `json:"rss_bytes"`
	CPUPercent  float64   `json:"cpu_percent"`
	AllocMemMb  uint64    `json:"alloc_mem_mb"`
	NumGC       uint32    `json:"num_gc"`
	Goroutines  int       `json:"goroutines"`
	LastUpdated time.Time `json:"last_updated"`
}

// MonitoringManager gathers the counters of the sync layer.
// It is a permanent EventSink of the event fanout.
type MonitoringManager struct {
	log *slog.Logger

	Delivered uint64
	Dropped   uint64
	Evicted   uint64
	Accepted  uint64

	mu             sync.RWMutex
	eventsByType   map[event.Type]uint64
	rejectedByCode map[errors.Code]uint64
	gauges         Gauges
	rssBytes       uint64
	cpuPercent     float64
	lastUpdated    time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{
		log:            log,
		eventsByType:   make(map[event.Type]uint64),
		rejectedByCode: make(map[errors.Code]uint64),
	}
}

// Consume counts one delivered event by type.
func (mm *MonitoringManager) Consume(ctx context.Context, e event.ServerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.eventsByType[e.Type()]++
	return nil
}

func (mm *MonitoringManager) IncrDelivered() {
	atomic.AddUint64(&mm.Delivered, 1)
}

func (mm *MonitoringManager) IncrDropped() {
	atomic.AddUint64(&mm.Dropped, 1)
}

func (mm *MonitoringManager) IncrEvicted() {
	atomic.AddUint64(&mm.Evicted, 1)
}

func (mm *MonitoringManager) IncrAccepted() {
	atomic.AddUint64(&mm.Accepted, 1)
}

func (mm *MonitoringManager) IncrRejected(code errors.Code) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.rejectedByCode[code]++
}

// Record stores the latest gauges and process figures sampled by the heartbeat.
func (mm *MonitoringManager) Record(gauges Gauges, rssBytes uint64, cpuPercent float64) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.gauges = gauges
	mm.rssBytes = rssBytes
	mm.cpuPercent = cpuPercent
	mm.lastUpdated = time.Now()
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.mu.RLock()
	defer mm.mu.RUnlock()
	stats := MonitoringStats{
		Gauges:         mm.gauges,
		Delivered:      atomic.LoadUint64(&mm.Delivered),
		Dropped:        atomic.LoadUint64(&mm.Dropped),
		Evicted:        atomic.LoadUint64(&mm.Evicted),
		Accepted:       atomic.LoadUint64(&mm.Accepted),
		EventsByType:   make(map[event.Type]uint64, len(mm.eventsByType)),
		RejectedByCode: make(map[errors.Code]uint64, len(mm.rejectedByCode)),
		RSSBytes:       mm.rssBytes,
		CPUPercent:     mm.cpuPercent,
		AllocMemMb:     m.Alloc / 1024 / 1024,
		NumGC:          m.NumGC,
		Goroutines:     runtime.NumGoroutine(),
		LastUpdated:    mm.lastUpdated,
	}
	for k, v := range mm.eventsByType {
		stats.EventsByType[k] = v
	}
	for k, v := range mm.rejectedByCode {
		stats.RejectedByCode[k] = v
	}
	return stats
}
