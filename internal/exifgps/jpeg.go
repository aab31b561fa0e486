package exifgps

import (
	"encoding/binary"
	"fmt"
)

const (
	markerSOI  = 0xD8
	markerAPP1 = 0xE1
	markerSOS  = 0xDA
)

// maxAPP1Payload is the largest payload that fits a JPEG segment length.
const maxAPP1Payload = 0xFFFF - 2

// InsertAPP1 returns a copy of jpegData with an APP1 segment carrying
// payload inserted directly after the SOI marker.
func InsertAPP1(jpegData, payload []byte) ([]byte, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != markerSOI {
		return nil, fmt.Errorf("exifgps: not a JPEG stream")
	}
	if len(payload) > maxAPP1Payload {
		return nil, fmt.Errorf("exifgps: APP1 payload too large: %d bytes", len(payload))
	}

	out := make([]byte, 0, len(jpegData)+len(payload)+4)
	out = append(out, jpegData[:2]...)
	out = append(out, 0xFF, markerAPP1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	out = append(out, jpegData[2:]...)
	return out, nil
}

// ExtractInfo walks the JPEG segment chain and decodes the first APP1
// segment carrying EXIF GPS data. Returns ErrNoGPSData when none exists.
func ExtractInfo(jpegData []byte) (*Info, error) {
	if len(jpegData) < 2 || jpegData[0] != 0xFF || jpegData[1] != markerSOI {
		return nil, fmt.Errorf("exifgps: not a JPEG stream")
	}

	pos := 2
	for pos+4 <= len(jpegData) {
		if jpegData[pos] != 0xFF {
			return nil, fmt.Errorf("exifgps: bad segment marker at offset %d", pos)
		}
		marker := jpegData[pos+1]
		if marker == markerSOS {
			break // entropy-coded data from here on
		}
		length := int(binary.BigEndian.Uint16(jpegData[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(jpegData) {
			return nil, fmt.Errorf("exifgps: truncated segment at offset %d", pos)
		}
		if marker == markerAPP1 {
			payload := jpegData[pos+4 : pos+2+length]
			if info, err := Decode(payload); err == nil {
				return info, nil
			}
		}
		pos += 2 + length
	}
	return nil, ErrNoGPSData
}
