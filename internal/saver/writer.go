package saver

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/searchlight-sar/scanner/internal/annotate"
	"github.com/searchlight-sar/scanner/internal/exifgps"
	"github.com/searchlight-sar/scanner/pkg/types"
)

// ErrFilenameCollision reports two frames in one batch mapping to the same
// millisecond-timestamp filename. The colliding frame is not written.
var ErrFilenameCollision = errors.New("saver: filename collision within batch")

// jpegQuality for persisted detection images.
const jpegQuality = 90

// WriterOptions carry the caption styling read from config at cycle start.
type WriterOptions struct {
	FontSize  int
	FontColor [3]uint8
}

// WriteFrame annotates one frame, embeds its GPS telemetry as EXIF geotag
// fields, and commits it into dir. Returns the written path.
func WriteFrame(frame *types.CapturedFrame, dir string, opts WriterOptions) (string, error) {
	caption := annotate.Caption(frame.GPS, frame.CapturedAt)
	annotate.DrawCaption(frame.Image, caption, opts.FontSize, opts.FontColor)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	data := buf.Bytes()

	if frame.GPS != nil {
		info := exifgps.Info{
			Latitude:  frame.GPS.Latitude,
			Longitude: frame.GPS.Longitude,
			Altitude:  frame.GPS.Altitude,
			Bearing:   frame.GPS.Bearing,
		}
		if frame.GPS.Speed != nil {
			kmh := *frame.GPS.Speed * 3.6
			info.SpeedKMH = &kmh
		}
		withExif, err := exifgps.InsertAPP1(data, exifgps.Encode(info))
		if err != nil {
			return "", fmt.Errorf("embed gps metadata: %w", err)
		}
		data = withExif
	}

	name := fmt.Sprintf("%s_%s.jpg", shardPrefix, types.FormatTimestamp(frame.CapturedAt))
	path := filepath.Join(dir, name)

	// O_EXCL makes a same-millisecond duplicate an explicit failure rather
	// than a silent overwrite.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrFilenameCollision, name)
		}
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
