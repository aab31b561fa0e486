package types

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
)

// Detection is one object detection reported by the detector boundary.
// Immutable once created.
type Detection struct {
	Category   string          // Detector class label (e.g. "person")
	Confidence float64         // Detector confidence in [0,1]
	Box        image.Rectangle // Bounding box in frame pixels (optional)
}

// CapturedFrame is a camera frame plus everything known about it at capture
// time. The producer must not alias Image after handoff to the capture queue.
type CapturedFrame struct {
	ID         uuid.UUID    // Correlation ID for logs and metrics
	Image      *image.RGBA  // Owned pixel buffer
	Detections []Detection  // Detections found in this frame
	GPS        *GpsSnapshot // Telemetry at capture time, nil when unknown
	CapturedAt time.Time    // Capture timestamp, millisecond resolution
}

// NewCapturedFrame stamps a frame with an ID and capture time.
func NewCapturedFrame(img *image.RGBA, dets []Detection, gps *GpsSnapshot) *CapturedFrame {
	return &CapturedFrame{
		ID:         uuid.New(),
		Image:      img,
		Detections: dets,
		GPS:        gps,
		CapturedAt: time.Now(),
	}
}

// FormatTimestamp renders a capture time at millisecond resolution for
// captions and saved image filenames. The millisecond component is appended
// by hand: a dash separator before fractional seconds is not expressible as
// a time layout.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s-%03d", t.Format("2006-01-02_15-04-05"), t.Nanosecond()/1e6)
}

// GpsSnapshot is the exported read model of the GPS fusion engine. Every
// field except position may be transiently absent even after a fix exists;
// nil means "unknown", never zero.
type GpsSnapshot struct {
	Latitude  float64  // Decimal degrees, south negative
	Longitude float64  // Decimal degrees, west negative
	Altitude  *float64 // Meters
	Speed     *float64 // Meters per second over ground
	Bearing   *float64 // Degrees true north, [0,360)
}

// GpsFix is one valid position reading at a point in time.
type GpsFix struct {
	Latitude  float64
	Longitude float64
	At        time.Time
}
