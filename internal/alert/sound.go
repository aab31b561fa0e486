// Package alert dispatches audible and visual side effects for detections.
// Notify is fire-and-forget: it never blocks the detection path and the
// caller consumes no result.
package alert

import (
	"os/exec"
	"sync"
	"time"

	"github.com/searchlight-sar/scanner/internal/logger"
	"github.com/searchlight-sar/scanner/internal/metrics"
	"github.com/searchlight-sar/scanner/pkg/types"
)

// Player plays one sound file to completion.
type Player interface {
	Play(path string) error
}

// ExecPlayer spawns an external player process per sound.
type ExecPlayer struct {
	Command string // e.g. "mpg123"
}

func (p *ExecPlayer) Play(path string) error {
	return exec.Command(p.Command, path).Run()
}

// Cooldowns between audible alerts. A powerline detection warns longer and
// louder, so it also suppresses follow-ups for longer.
const (
	DefaultCooldown   = 2 * time.Second
	PowerlineCooldown = 9 * time.Second
)

// powerlineCategory selects the alternate alarm sound and cooldown.
const powerlineCategory = "powerline"

// Sounds maps alert kinds to sound file paths.
type Sounds struct {
	Default   string
	Powerline string
}

// Sounder plays detection alert sounds from a background worker with a
// cooldown window between plays.
type Sounder struct {
	player Player
	sounds Sounds
	m      *metrics.Metrics
	now    func() time.Time

	queue chan string

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
	lastPlay time.Time
	cooldown time.Duration
}

// NewSounder creates a sounder. player must not be nil; m may be nil.
func NewSounder(player Player, sounds Sounds, m *metrics.Metrics) *Sounder {
	return &Sounder{
		player: player,
		sounds: sounds,
		m:      m,
		now:    time.Now,
		queue:  make(chan string, 8),
	}
}

// Start launches the playback worker. No-op when already running.
func (s *Sounder) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stopCh)
}

// Stop terminates the worker and waits for it to exit.
func (s *Sounder) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Sounder) run(stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case sound := <-s.queue:
			if err := s.player.Play(sound); err != nil {
				logger.Warn("Alert", "Sound playback failed: %v", err)
			}
		}
	}
}

// Notify queues an alert sound for the given detections, applying the
// cooldown window. Never blocks; alerts arriving while the queue is full or
// during cooldown are suppressed.
func (s *Sounder) Notify(detections []types.Detection) {
	if len(detections) == 0 {
		return
	}

	sound := s.sounds.Default
	cooldown := DefaultCooldown
	for _, det := range detections {
		if det.Category == powerlineCategory {
			sound = s.sounds.Powerline
			cooldown = PowerlineCooldown
			break
		}
	}

	s.mu.Lock()
	if s.now().Sub(s.lastPlay) < s.cooldown {
		s.mu.Unlock()
		if s.m != nil {
			s.m.AlertsSuppressed.Add(1)
		}
		return
	}
	s.lastPlay = s.now()
	s.cooldown = cooldown
	s.mu.Unlock()

	select {
	case s.queue <- sound:
		if s.m != nil {
			s.m.AlertsDispatched.Add(1)
		}
	default:
		if s.m != nil {
			s.m.AlertsSuppressed.Add(1)
		}
	}
}
