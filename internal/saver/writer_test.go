package saver

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/searchlight-sar/scanner/internal/exifgps"
	"github.com/searchlight-sar/scanner/pkg/types"
)

func floatPtr(v float64) *float64 { return &v }

var testOpts = WriterOptions{FontSize: 16, FontColor: [3]uint8{255, 0, 0}}

func testFrame(at time.Time, gps *types.GpsSnapshot) *types.CapturedFrame {
	return &types.CapturedFrame{
		ID:         uuid.New(),
		Image:      image.NewRGBA(image.Rect(0, 0, 320, 240)),
		Detections: []types.Detection{{Category: "person", Confidence: 0.9}},
		GPS:        gps,
		CapturedAt: at,
	}
}

func TestWriteFrameWithGPSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 30, 10, 0, 0, 500_000_000, time.UTC)
	snap := &types.GpsSnapshot{
		Latitude:  48.1173,
		Longitude: 11.5167,
		Altitude:  floatPtr(545.46),
		Speed:     floatPtr(10.0), // m/s
		Bearing:   floatPtr(210.5),
	}

	path, err := WriteFrame(testFrame(at, snap), dir, testOpts)
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	wantName := "DET_2026-08-30_10-00-00-500.jpg"
	if filepath.Base(path) != wantName {
		t.Fatalf("filename = %s, want %s", filepath.Base(path), wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written image: %v", err)
	}
	info, err := exifgps.ExtractInfo(data)
	if err != nil {
		t.Fatalf("ExtractInfo: %v", err)
	}

	if math.Abs(info.Latitude-snap.Latitude) > 0.0001 {
		t.Fatalf("latitude = %v, want %v", info.Latitude, snap.Latitude)
	}
	if math.Abs(info.Longitude-snap.Longitude) > 0.0001 {
		t.Fatalf("longitude = %v, want %v", info.Longitude, snap.Longitude)
	}
	if math.Abs(*info.Altitude-*snap.Altitude) > 0.1 {
		t.Fatalf("altitude = %v, want %v", *info.Altitude, *snap.Altitude)
	}
	wantKMH := *snap.Speed * 3.6
	if math.Abs(*info.SpeedKMH-wantKMH) > 0.1 {
		t.Fatalf("speed = %v km/h, want %v", *info.SpeedKMH, wantKMH)
	}
	if math.Abs(*info.Bearing-*snap.Bearing) > 0.1 {
		t.Fatalf("bearing = %v, want %v", *info.Bearing, *snap.Bearing)
	}
}

func TestWriteFrameWithoutGPSHasNoMetadata(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFrame(testFrame(time.Now(), nil), dir, testOpts)
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exifgps.ExtractInfo(data); !errors.Is(err, exifgps.ErrNoGPSData) {
		t.Fatalf("err = %v, want ErrNoGPSData", err)
	}
}

func TestWriteFrameFilenameCollision(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if _, err := WriteFrame(testFrame(at, nil), dir, testOpts); err != nil {
		t.Fatalf("first write: %v", err)
	}
	_, err := WriteFrame(testFrame(at, nil), dir, testOpts)
	if !errors.Is(err, ErrFilenameCollision) {
		t.Fatalf("second write err = %v, want ErrFilenameCollision", err)
	}
}

func TestWriteFrameMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := WriteFrame(testFrame(time.Now(), nil), missing, testOpts); err == nil {
		t.Fatal("WriteFrame into missing directory succeeded")
	}
}
