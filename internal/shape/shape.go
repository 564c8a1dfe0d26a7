// Package shape implements the zigzag-varint delta polyline codec used
// to encode edge geometries and response shapes (spec.md §4.2).
package shape

import (
	"fmt"
	"math"
)

// Point is a decoded (lat, lon) pair in degrees.
type Point struct {
	Lat, Lon float64
}

// precision is the fixed-point scale: 1e-6 degrees per unit.
const precision = 1e6

// maxPoints caps decode output as a defence against corrupted input.
const maxPoints = 5000

// Encode produces the little-endian, zigzag-signed, delta-encoded
// varint byte sequence for a sequence of points, lat then lon per
// point, each delta against the previous point (the first point is
// delta-encoded against the origin).
func Encode(points []Point) []byte {
	var buf []byte
	var prevLat, prevLon int64

	for _, p := range points {
		lat := round1e6(p.Lat)
		lon := round1e6(p.Lon)

		buf = appendVarint(buf, lat-prevLat)
		buf = appendVarint(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return buf
}

// Decode reads points from b[offset:offset+size]. Decoding stops and
// returns the accepted prefix if a coordinate would violate
// |lat|<=90, |lon|<=180, or once maxPoints points have been produced.
func Decode(b []byte, offset, size int) ([]Point, error) {
	if offset < 0 || size < 0 || offset+size > len(b) {
		return nil, fmt.Errorf("shape: offset/size out of range")
	}
	chunk := b[offset : offset+size]

	var points []Point
	var lat, lon int64
	pos := 0

	for pos < len(chunk) && len(points) < maxPoints {
		dlat, n, ok := readVarint(chunk[pos:])
		if !ok {
			break
		}
		pos += n

		dlon, n, ok := readVarint(chunk[pos:])
		if !ok {
			break
		}
		pos += n

		lat += dlat
		lon += dlon

		latDeg := float64(lat) / precision
		lonDeg := float64(lon) / precision
		if latDeg < -90 || latDeg > 90 || lonDeg < -180 || lonDeg > 180 {
			break
		}

		points = append(points, Point{Lat: latDeg, Lon: lonDeg})
	}

	return points, nil
}

func round1e6(v float64) int64 {
	return int64(math.Round(v * precision))
}

// appendVarint zigzag-encodes v, then writes it 7 bits at a time,
// little-endian, high bit set on all but the last byte.
func appendVarint(buf []byte, v int64) []byte {
	zz := zigzagEncode(v)
	for zz >= 0x80 {
		buf = append(buf, byte(zz&0x7f)|0x80)
		zz >>= 7
	}
	buf = append(buf, byte(zz))
	return buf
}

// readVarint decodes one zigzag varint from b, returning the signed
// value, the number of bytes consumed, and whether decoding succeeded.
func readVarint(b []byte) (int64, int, bool) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		byt := b[i]
		result |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			return zigzagDecode(result), i + 1, true
		}
		shift += 7
		if shift > 63 {
			return 0, 0, false
		}
	}
	return 0, 0, false
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
