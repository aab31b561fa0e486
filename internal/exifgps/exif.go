// Package exifgps encodes and decodes the GPS IFD of an EXIF APP1 segment.
// Only the geotag fields the scanner writes are supported; values use the
// standard fixed-point rational encoding so any EXIF-aware tool can read
// them back.
package exifgps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// KnotsPerKMH converts km/h to knots for the GPSSpeed field.
const KnotsPerKMH = 0.539957

// Info is the machine-readable GPS metadata embedded in a saved image.
// Position is mandatory; the derived fields are written only when present.
type Info struct {
	Latitude  float64  // decimal degrees, south negative
	Longitude float64  // decimal degrees, west negative
	Altitude  *float64 // meters
	SpeedKMH  *float64 // km/h over ground
	Bearing   *float64 // degrees true north
}

// GPS IFD tags (EXIF 2.3, section 4.6.6)
const (
	tagVersionID       = 0x0000
	tagLatitudeRef     = 0x0001
	tagLatitude        = 0x0002
	tagLongitudeRef    = 0x0003
	tagLongitude       = 0x0004
	tagAltitudeRef     = 0x0005
	tagAltitude        = 0x0006
	tagSpeedRef        = 0x000C
	tagSpeed           = 0x000D
	tagImgDirectionRef = 0x0010
	tagImgDirection    = 0x0011
)

// TIFF field types
const (
	typeByte     = 1
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5
)

const tagGPSInfoPointer = 0x8825

var exifHeader = []byte("Exif\x00\x00")

// ErrNoGPSData reports a JPEG (or APP1 payload) without a GPS IFD.
var ErrNoGPSData = errors.New("exifgps: no GPS metadata present")

type ifdEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	value     []byte // raw value bytes, padded/offset handling at layout time
}

func rationalBytes(rs ...Rational) []byte {
	buf := make([]byte, 0, len(rs)*8)
	for _, r := range rs {
		buf = binary.BigEndian.AppendUint32(buf, r.Num)
		buf = binary.BigEndian.AppendUint32(buf, r.Den)
	}
	return buf
}

// Encode builds a complete APP1 payload ("Exif\0\0" + big-endian TIFF)
// containing IFD0 with a single GPS IFD pointer and the GPS IFD itself.
func Encode(info Info) []byte {
	entries := []ifdEntry{
		{tagVersionID, typeByte, 4, []byte{2, 3, 0, 0}},
		{tagLatitudeRef, typeASCII, 2, refBytes(info.Latitude >= 0, "N", "S")},
		{tagLatitude, typeRational, 3, rationalBytes(sliceOf(dmsRationals(math.Abs(info.Latitude)))...)},
		{tagLongitudeRef, typeASCII, 2, refBytes(info.Longitude >= 0, "E", "W")},
		{tagLongitude, typeRational, 3, rationalBytes(sliceOf(dmsRationals(math.Abs(info.Longitude)))...)},
	}

	if info.Altitude != nil {
		ref := byte(0)
		if *info.Altitude < 0 {
			ref = 1
		}
		entries = append(entries,
			ifdEntry{tagAltitudeRef, typeByte, 1, []byte{ref}},
			ifdEntry{tagAltitude, typeRational, 1, rationalBytes(Approximate(math.Abs(*info.Altitude), MaxDenominator))},
		)
	}
	if info.SpeedKMH != nil {
		knots := *info.SpeedKMH * KnotsPerKMH
		entries = append(entries,
			ifdEntry{tagSpeedRef, typeASCII, 2, []byte("K\x00")},
			ifdEntry{tagSpeed, typeRational, 1, rationalBytes(Approximate(knots, MaxDenominator))},
		)
	}
	if info.Bearing != nil {
		entries = append(entries,
			ifdEntry{tagImgDirectionRef, typeASCII, 2, []byte("T\x00")},
			ifdEntry{tagImgDirection, typeRational, 1, rationalBytes(Approximate(*info.Bearing, MaxDenominator))},
		)
	}

	// TIFF header (8 bytes), then IFD0 with one entry pointing at the GPS
	// IFD. All offsets are relative to the TIFF header start.
	const tiffHeaderSize = 8
	const ifd0Size = 2 + 12 + 4
	gpsOffset := uint32(tiffHeaderSize + ifd0Size)

	tiff := make([]byte, 0, 256)
	tiff = append(tiff, 'M', 'M', 0x00, 0x2A)
	tiff = binary.BigEndian.AppendUint32(tiff, tiffHeaderSize)

	// IFD0
	tiff = binary.BigEndian.AppendUint16(tiff, 1)
	tiff = binary.BigEndian.AppendUint16(tiff, tagGPSInfoPointer)
	tiff = binary.BigEndian.AppendUint16(tiff, typeLong)
	tiff = binary.BigEndian.AppendUint32(tiff, 1)
	tiff = binary.BigEndian.AppendUint32(tiff, gpsOffset)
	tiff = binary.BigEndian.AppendUint32(tiff, 0) // no next IFD

	// GPS IFD entry table, with out-of-line values packed after it
	dataOffset := gpsOffset + uint32(2+12*len(entries)+4)
	var extra []byte

	tiff = binary.BigEndian.AppendUint16(tiff, uint16(len(entries)))
	for _, e := range entries {
		tiff = binary.BigEndian.AppendUint16(tiff, e.tag)
		tiff = binary.BigEndian.AppendUint16(tiff, e.fieldType)
		tiff = binary.BigEndian.AppendUint32(tiff, e.count)
		if len(e.value) <= 4 {
			padded := make([]byte, 4)
			copy(padded, e.value)
			tiff = append(tiff, padded...)
		} else {
			tiff = binary.BigEndian.AppendUint32(tiff, dataOffset+uint32(len(extra)))
			extra = append(extra, e.value...)
		}
	}
	tiff = binary.BigEndian.AppendUint32(tiff, 0) // no next IFD
	tiff = append(tiff, extra...)

	payload := make([]byte, 0, len(exifHeader)+len(tiff))
	payload = append(payload, exifHeader...)
	payload = append(payload, tiff...)
	return payload
}

func refBytes(positive bool, pos, neg string) []byte {
	if positive {
		return []byte(pos + "\x00")
	}
	return []byte(neg + "\x00")
}

func sliceOf(dms [3]Rational) []Rational {
	return dms[:]
}

// Decode parses an APP1 payload produced by Encode (or any big-endian EXIF
// block carrying a GPS IFD) back into Info.
func Decode(payload []byte) (*Info, error) {
	if !bytes.HasPrefix(payload, exifHeader) {
		return nil, fmt.Errorf("exifgps: missing Exif header")
	}
	tiff := payload[len(exifHeader):]
	if len(tiff) < 8 {
		return nil, fmt.Errorf("exifgps: truncated TIFF header")
	}
	if tiff[0] != 'M' || tiff[1] != 'M' {
		return nil, fmt.Errorf("exifgps: only big-endian TIFF supported")
	}
	if binary.BigEndian.Uint16(tiff[2:4]) != 0x2A {
		return nil, fmt.Errorf("exifgps: bad TIFF magic")
	}

	ifd0 := binary.BigEndian.Uint32(tiff[4:8])
	gpsOffset, err := findGPSPointer(tiff, ifd0)
	if err != nil {
		return nil, err
	}

	fields, err := readIFD(tiff, gpsOffset)
	if err != nil {
		return nil, err
	}

	lat, err := decodePosition(fields, tagLatitude, tagLatitudeRef, 'S')
	if err != nil {
		return nil, fmt.Errorf("exifgps: latitude: %w", err)
	}
	lon, err := decodePosition(fields, tagLongitude, tagLongitudeRef, 'W')
	if err != nil {
		return nil, fmt.Errorf("exifgps: longitude: %w", err)
	}

	info := &Info{Latitude: lat, Longitude: lon}

	if raw, ok := fields[tagAltitude]; ok {
		alt := decodeRational(raw).Float()
		if ref, ok := fields[tagAltitudeRef]; ok && len(ref) > 0 && ref[0] == 1 {
			alt = -alt
		}
		info.Altitude = &alt
	}
	if raw, ok := fields[tagSpeed]; ok {
		kmh := decodeRational(raw).Float() / KnotsPerKMH
		info.SpeedKMH = &kmh
	}
	if raw, ok := fields[tagImgDirection]; ok {
		bearing := decodeRational(raw).Float()
		info.Bearing = &bearing
	}
	return info, nil
}

func findGPSPointer(tiff []byte, ifdOffset uint32) (uint32, error) {
	if int(ifdOffset)+2 > len(tiff) {
		return 0, fmt.Errorf("exifgps: IFD0 offset out of range")
	}
	count := int(binary.BigEndian.Uint16(tiff[ifdOffset:]))
	for i := 0; i < count; i++ {
		base := int(ifdOffset) + 2 + i*12
		if base+12 > len(tiff) {
			return 0, fmt.Errorf("exifgps: truncated IFD0")
		}
		if binary.BigEndian.Uint16(tiff[base:]) == tagGPSInfoPointer {
			return binary.BigEndian.Uint32(tiff[base+8:]), nil
		}
	}
	return 0, ErrNoGPSData
}

// readIFD returns the raw value bytes of every entry in the IFD at offset.
func readIFD(tiff []byte, offset uint32) (map[uint16][]byte, error) {
	if int(offset)+2 > len(tiff) {
		return nil, fmt.Errorf("exifgps: GPS IFD offset out of range")
	}
	count := int(binary.BigEndian.Uint16(tiff[offset:]))
	fields := make(map[uint16][]byte, count)
	for i := 0; i < count; i++ {
		base := int(offset) + 2 + i*12
		if base+12 > len(tiff) {
			return nil, fmt.Errorf("exifgps: truncated GPS IFD")
		}
		tag := binary.BigEndian.Uint16(tiff[base:])
		fieldType := binary.BigEndian.Uint16(tiff[base+2:])
		valCount := binary.BigEndian.Uint32(tiff[base+4:])
		size := typeSize(fieldType) * int(valCount)
		if size <= 0 {
			continue
		}
		var raw []byte
		if size <= 4 {
			raw = tiff[base+8 : base+8+size]
		} else {
			valOffset := int(binary.BigEndian.Uint32(tiff[base+8:]))
			if valOffset+size > len(tiff) {
				return nil, fmt.Errorf("exifgps: value offset out of range for tag 0x%04x", tag)
			}
			raw = tiff[valOffset : valOffset+size]
		}
		fields[tag] = raw
	}
	return fields, nil
}

func typeSize(fieldType uint16) int {
	switch fieldType {
	case typeByte, typeASCII:
		return 1
	case typeLong:
		return 4
	case typeRational:
		return 8
	default:
		return 0
	}
}

func decodeRational(raw []byte) Rational {
	if len(raw) < 8 {
		return Rational{}
	}
	return Rational{
		Num: binary.BigEndian.Uint32(raw[0:4]),
		Den: binary.BigEndian.Uint32(raw[4:8]),
	}
}

func decodePosition(fields map[uint16][]byte, valueTag, refTag uint16, negRef byte) (float64, error) {
	raw, ok := fields[valueTag]
	if !ok || len(raw) < 24 {
		return 0, ErrNoGPSData
	}
	var dms [3]Rational
	for i := 0; i < 3; i++ {
		dms[i] = decodeRational(raw[i*8 : i*8+8])
	}
	deg := dmsToDegrees(dms)
	if ref, ok := fields[refTag]; ok && len(ref) > 0 && ref[0] == negRef {
		deg = -deg
	}
	return deg, nil
}
