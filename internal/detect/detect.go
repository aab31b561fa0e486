// Package detect is the boundary between the vendor object detector and the
// scanner core. The detector itself is an external collaborator; this
// package only filters its output and feeds the capture and alert pipelines.
package detect

import (
	"fmt"
	"image"

	"github.com/searchlight-sar/scanner/internal/gps"
	"github.com/searchlight-sar/scanner/internal/logger"
	"github.com/searchlight-sar/scanner/pkg/types"
)

// Detector is the opaque object-detection boundary. Implementations must
// report confidence in [0,1] and a category string per detection.
type Detector interface {
	Detect(img *image.RGBA) ([]types.Detection, error)
}

// Notifier receives detection events for side effects (sound, LED).
type Notifier interface {
	Notify(detections []types.Detection)
}

// Enqueuer accepts captured frames for persistence, typically the saver
// scheduler.
type Enqueuer interface {
	Enqueue(frame *types.CapturedFrame)
}

// FilterByThreshold drops detections below their category's confidence
// floor. Categories without a threshold pass through.
func FilterByThreshold(detections []types.Detection, thresholds map[string]float64) []types.Detection {
	if len(thresholds) == 0 {
		return detections
	}
	kept := detections[:0:0]
	for _, det := range detections {
		if floor, ok := thresholds[det.Category]; ok && det.Confidence < floor {
			continue
		}
		kept = append(kept, det)
	}
	return kept
}

// Processor runs frames from one camera-processing context through the
// detector and hands the results to the alert dispatcher and the capture
// queue. Safe for concurrent use by multiple camera contexts.
type Processor struct {
	detector   Detector
	engine     *gps.Engine // may be nil when running without GPS telemetry
	sink       Enqueuer
	notifier   Notifier
	thresholds map[string]float64
}

// NewProcessor wires a detection processor. notifier may be nil.
func NewProcessor(detector Detector, engine *gps.Engine, sink Enqueuer, notifier Notifier, thresholds map[string]float64) *Processor {
	return &Processor{
		detector:   detector,
		engine:     engine,
		sink:       sink,
		notifier:   notifier,
		thresholds: thresholds,
	}
}

// ProcessFrame detects objects in img, dispatches alerts, and enqueues the
// frame for persistence. The processor takes ownership of img.
func (p *Processor) ProcessFrame(img *image.RGBA) error {
	detections, err := p.detector.Detect(img)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	detections = FilterByThreshold(detections, p.thresholds)
	if len(detections) == 0 {
		return nil
	}

	if p.notifier != nil {
		p.notifier.Notify(detections)
	}

	var snapshot *types.GpsSnapshot
	if p.engine != nil {
		snapshot = p.engine.Snapshot()
	}

	frame := types.NewCapturedFrame(img, detections, snapshot)
	p.sink.Enqueue(frame)
	logger.Debug("Detect", "Frame %s: %d detections enqueued", frame.ID, len(detections))
	return nil
}
