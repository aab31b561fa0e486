package exifgps

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"math"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func assertClose(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	info := Info{
		Latitude:  48.1173,
		Longitude: 11.5167,
		Altitude:  floatPtr(545.46),
		SpeedKMH:  floatPtr(37.2),
		Bearing:   floatPtr(123.45),
	}

	decoded, err := Decode(Encode(info))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	assertClose(t, "latitude", decoded.Latitude, info.Latitude, 0.0001)
	assertClose(t, "longitude", decoded.Longitude, info.Longitude, 0.0001)
	assertClose(t, "altitude", *decoded.Altitude, *info.Altitude, 0.1)
	assertClose(t, "speed", *decoded.SpeedKMH, *info.SpeedKMH, 0.1)
	assertClose(t, "bearing", *decoded.Bearing, *info.Bearing, 0.1)
}

func TestEncodeDecodeSouthernWesternHemisphere(t *testing.T) {
	info := Info{
		Latitude:  -33.8667,
		Longitude: -151.2000,
		Altitude:  floatPtr(-12.5), // below sea level
	}

	decoded, err := Decode(Encode(info))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertClose(t, "latitude", decoded.Latitude, info.Latitude, 0.0001)
	assertClose(t, "longitude", decoded.Longitude, info.Longitude, 0.0001)
	assertClose(t, "altitude", *decoded.Altitude, *info.Altitude, 0.1)
}

func TestEncodeDecodePositionOnly(t *testing.T) {
	info := Info{Latitude: 10.5, Longitude: 20.25}

	decoded, err := Decode(Encode(info))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Altitude != nil || decoded.SpeedKMH != nil || decoded.Bearing != nil {
		t.Fatalf("optional fields decoded from position-only payload: %+v", decoded)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not exif data")); err == nil {
		t.Fatal("Decode accepted garbage")
	}
	if _, err := Decode([]byte("Exif\x00\x00II*\x00")); err == nil {
		t.Fatal("Decode accepted little-endian TIFF")
	}
}

func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestInsertAndExtractFromJPEG(t *testing.T) {
	info := Info{
		Latitude:  48.1173,
		Longitude: -11.5167,
		Altitude:  floatPtr(100.25),
		SpeedKMH:  floatPtr(55.5),
		Bearing:   floatPtr(270.0),
	}

	jpegData := encodeTestJPEG(t)
	tagged, err := InsertAPP1(jpegData, Encode(info))
	if err != nil {
		t.Fatalf("InsertAPP1: %v", err)
	}

	// Still a decodable JPEG after the insert.
	if _, err := jpeg.Decode(bytes.NewReader(tagged)); err != nil {
		t.Fatalf("tagged image no longer decodes: %v", err)
	}

	extracted, err := ExtractInfo(tagged)
	if err != nil {
		t.Fatalf("ExtractInfo: %v", err)
	}
	assertClose(t, "latitude", extracted.Latitude, info.Latitude, 0.0001)
	assertClose(t, "longitude", extracted.Longitude, info.Longitude, 0.0001)
	assertClose(t, "altitude", *extracted.Altitude, *info.Altitude, 0.1)
	assertClose(t, "speed", *extracted.SpeedKMH, *info.SpeedKMH, 0.1)
	assertClose(t, "bearing", *extracted.Bearing, *info.Bearing, 0.1)
}

func TestExtractFromPlainJPEG(t *testing.T) {
	_, err := ExtractInfo(encodeTestJPEG(t))
	if !errors.Is(err, ErrNoGPSData) {
		t.Fatalf("err = %v, want ErrNoGPSData", err)
	}
}

func TestInsertRejectsNonJPEG(t *testing.T) {
	if _, err := InsertAPP1([]byte("png data"), []byte("payload")); err == nil {
		t.Fatal("InsertAPP1 accepted a non-JPEG stream")
	}
}
