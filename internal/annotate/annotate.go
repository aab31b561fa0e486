// Package annotate stamps captured frames with a human-readable telemetry
// caption before they are persisted.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/searchlight-sar/scanner/pkg/types"
)

// captionMargin is the pixel offset of the caption from the top-left corner.
const captionMargin = 10

// Caption renders the fixed-format telemetry line for a frame. Every field
// is always present positionally; individually missing values render as the
// literal token N/A. Without any GPS snapshot the caption degrades to a
// timestamp plus a no-GPS marker.
func Caption(gps *types.GpsSnapshot, capturedAt time.Time) string {
	ts := types.FormatTimestamp(capturedAt)
	if gps == nil {
		return fmt.Sprintf("%s    -- No GPS --", ts)
	}

	lat := fmt.Sprintf("%.5f", gps.Latitude)
	lon := fmt.Sprintf("%.5f", gps.Longitude)

	alt := "N/A"
	if gps.Altitude != nil {
		alt = fmt.Sprintf("%.1fm", *gps.Altitude)
	}
	cog := "N/A"
	if gps.Bearing != nil {
		cog = fmt.Sprintf("%d", int(*gps.Bearing))
	}
	speed := "N/A"
	if gps.Speed != nil {
		speed = fmt.Sprintf("%.1f", *gps.Speed*3.6) // m/s to km/h
	}

	return fmt.Sprintf("Lat/Long: %s %s   ALT: %s   COG: %s°   SPD: %s km/h   %s",
		lat, lon, alt, cog, speed, ts)
}

// DrawCaption renders text onto img at the standard caption position, in the
// given color, approximating fontSize by integer-scaling the base bitmap
// face.
func DrawCaption(img *image.RGBA, text string, fontSize int, rgb [3]uint8) {
	face := basicfont.Face7x13
	col := color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}

	scale := fontSize / face.Height
	if scale < 1 {
		scale = 1
	}

	width := font.MeasureString(face, text).Ceil()
	if width <= 0 {
		return
	}

	// Render at 1x on a transparent strip, then scale-blit onto the frame.
	strip := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	d := font.Drawer{
		Dst:  strip,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	target := image.Rect(
		captionMargin, captionMargin,
		captionMargin+width*scale, captionMargin+face.Height*scale,
	)
	xdraw.NearestNeighbor.Scale(img, target, strip, strip.Bounds(), xdraw.Over, nil)
}
