// Package saver implements the asynchronous image persistence pipeline: a
// concurrent capture queue drained on a fixed interval, priority-based
// selection of a bounded subset, and annotated writes into capacity-sharded
// directories.
package saver

import (
	"sort"
	"sync"
	"time"

	"github.com/searchlight-sar/scanner/internal/config"
	"github.com/searchlight-sar/scanner/internal/logger"
	"github.com/searchlight-sar/scanner/internal/metrics"
	"github.com/searchlight-sar/scanner/internal/priority"
	"github.com/searchlight-sar/scanner/pkg/types"
)

// Scheduler periodically drains the capture queue, scores and ranks the
// drained frames, keeps the top images_per_rate of them, and hands the
// survivors to the writer in chronological order.
type Scheduler struct {
	queue *Queue
	ranks *priority.Ranks
	cfg   *config.Store
	m     *metrics.Metrics

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler wires the scheduler to its queue, rank snapshot, and config.
// m may be nil.
func NewScheduler(queue *Queue, ranks *priority.Ranks, cfg *config.Store, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		queue: queue,
		ranks: ranks,
		cfg:   cfg,
		m:     m,
	}
}

// Start launches the background save loop. No-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stopCh)
	logger.Info("Saver", "Scheduler started (save rate %.1fs)", s.cfg.SaveRate())
}

// Stop signals the loop to exit and blocks until it has terminated.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("Saver", "Scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		// Re-read the save rate every cycle so config changes take effect
		// without a restart.
		interval := time.Duration(s.cfg.SaveRate() * float64(time.Second))
		select {
		case <-stop:
			return
		case <-time.After(interval):
			s.runCycle()
		}
	}
}

// runCycle executes one Drain→Score→Select→Handoff pass. A failure anywhere
// abandons this cycle's batch but never the loop.
func (s *Scheduler) runCycle() {
	start := time.Now()
	frames := s.queue.Drain()
	if s.m != nil {
		s.m.SaveCycles.Add(1)
		s.m.QueueDepth.Store(0)
	}
	if len(frames) == 0 {
		return
	}

	selected := s.selectFrames(frames)
	if len(selected) == 0 {
		return
	}

	saved := s.writeBatch(selected)
	if s.m != nil {
		s.m.SaveCycleMs.Store(uint64(time.Since(start).Milliseconds()))
	}
	logger.Info("Saver", "Cycle: %d queued, %d selected, %d saved",
		len(frames), len(selected), saved)
}

// selectFrames scores the drained frames against the rank snapshot taken at
// drain time, keeps the top images_per_rate by score (ties broken by earlier
// capture), and returns them in chronological order.
func (s *Scheduler) selectFrames(frames []*types.CapturedFrame) []*types.CapturedFrame {
	ranks := s.ranks.Snapshot()

	type scored struct {
		frame *types.CapturedFrame
		score float64
	}
	scoredFrames := make([]scored, 0, len(frames))
	for _, f := range frames {
		if f == nil || f.Image == nil {
			if s.m != nil {
				s.m.FramesDropped.Add(1)
			}
			logger.Warn("Saver", "Dropping malformed frame from batch")
			continue
		}
		scoredFrames = append(scoredFrames, scored{
			frame: f,
			score: priority.Score(f.Detections, ranks),
		})
		if s.m != nil {
			s.m.FramesScored.Add(1)
		}
	}

	sort.SliceStable(scoredFrames, func(i, j int) bool {
		if scoredFrames[i].score != scoredFrames[j].score {
			return scoredFrames[i].score > scoredFrames[j].score
		}
		return scoredFrames[i].frame.CapturedAt.Before(scoredFrames[j].frame.CapturedAt)
	})

	limit := s.cfg.ImagesPerRate()
	if limit > len(scoredFrames) {
		limit = len(scoredFrames)
	}
	if s.m != nil {
		s.m.FramesSelected.Add(uint64(limit))
		s.m.FramesDiscarded.Add(uint64(len(scoredFrames) - limit))
	}

	selected := make([]*types.CapturedFrame, 0, limit)
	for _, sf := range scoredFrames[:limit] {
		selected = append(selected, sf.frame)
	}

	// Persistence order is chronological even though selection was by
	// priority.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].CapturedAt.Before(selected[j].CapturedAt)
	})
	return selected
}

// writeBatch commits the selected frames into one shard. Shard capacity is
// checked once for the whole batch; a shard-selection failure abandons the
// batch, a single bad frame only loses that frame.
func (s *Scheduler) writeBatch(selected []*types.CapturedFrame) int {
	dir, idx, err := selectShard(s.cfg.SaveDir(), len(selected), s.cfg.ImagesPerDir())
	if err != nil {
		if s.m != nil {
			s.m.SaveErrors.Add(1)
		}
		logger.Error("Saver", "Abandoning batch, shard selection failed: %v", err)
		return 0
	}
	if s.m != nil {
		prev := s.m.CurrentShard.Swap(uint64(idx))
		if uint64(idx) > prev {
			s.m.ShardRollovers.Add(uint64(idx) - prev)
		}
	}

	opts := WriterOptions{
		FontSize:  s.cfg.Int("image_font_size", config.DefaultFontSize),
		FontColor: s.cfg.FontColor(),
	}

	saved := 0
	for _, frame := range selected {
		path, err := WriteFrame(frame, dir, opts)
		if err != nil {
			if s.m != nil {
				s.m.SaveErrors.Add(1)
			}
			logger.Error("Saver", "Frame %s not written: %v", frame.ID, err)
			continue
		}
		saved++
		if s.m != nil {
			s.m.ImagesSaved.Add(1)
		}
		logger.Debug("Saver", "Saved %s", path)
	}
	return saved
}

// Enqueue hands a frame to the capture queue. Exposed on the scheduler so
// producers only need one handle.
func (s *Scheduler) Enqueue(frame *types.CapturedFrame) {
	s.queue.Enqueue(frame)
	if s.m != nil {
		s.m.FramesEnqueued.Add(1)
		s.m.QueueDepth.Store(uint64(s.queue.Len()))
	}
}
