package capture

import (
	"sync"
	"time"
)

// Metrics tracks per-session frame counters.
type Metrics struct {
	mu sync.RWMutex

	framesCaptured  uint64
	framesDelivered uint64
	framesSkipped   uint64
	framesDropped   uint64
	bytesDelivered  uint64

	lastTransform time.Duration
	startTime     time.Time
}

func newMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func (m *Metrics) restart() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

func (m *Metrics) recordCapture(d time.Duration) {
	m.mu.Lock()
	m.framesCaptured++
	m.lastTransform = d
	m.mu.Unlock()
}

func (m *Metrics) recordSkip() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.framesSkipped++
	return m.framesSkipped
}

func (m *Metrics) recordDeliver(size int) {
	m.mu.Lock()
	m.framesDelivered++
	m.bytesDelivered += uint64(size)
	m.mu.Unlock()
}

func (m *Metrics) recordDrop() {
	m.mu.Lock()
	m.framesDropped++
	m.mu.Unlock()
}

// StatsSnapshot is a point-in-time copy of session metrics.
type StatsSnapshot struct {
	FramesCaptured  uint64
	FramesDelivered uint64
	FramesSkipped   uint64
	FramesDropped   uint64
	BytesDelivered  uint64
	TransformMs     float64
	FPS             float64
	Uptime          time.Duration
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() StatsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.startTime)
	fps := float64(0)
	if uptime.Seconds() > 0 {
		fps = float64(m.framesDelivered) / uptime.Seconds()
	}

	return StatsSnapshot{
		FramesCaptured:  m.framesCaptured,
		FramesDelivered: m.framesDelivered,
		FramesSkipped:   m.framesSkipped,
		FramesDropped:   m.framesDropped,
		BytesDelivered:  m.bytesDelivered,
		TransformMs:     float64(m.lastTransform.Microseconds()) / 1000.0,
		FPS:             fps,
		Uptime:          uptime,
	}
}
