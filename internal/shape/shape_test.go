package shape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRoundTrip_S1 is spec.md §8 Scenario S1.
func TestRoundTrip_S1(t *testing.T) {
	points := []Point{
		{Lat: 48.208123, Lon: 16.373812},
		{Lat: 48.208500, Lon: 16.374000},
	}

	encoded := Encode(points)
	decoded, err := Decode(encoded, 0, len(encoded))
	require.NoError(t, err)

	require.Len(t, decoded, 2)
	for i := range points {
		require.InDelta(t, points[i].Lat, decoded[i].Lat, 1e-6)
		require.InDelta(t, points[i].Lon, decoded[i].Lon, 1e-6)
	}
}

func TestRoundTrip_Property(t *testing.T) {
	cases := [][]Point{
		{{Lat: 0, Lon: 0}},
		{{Lat: -33.865143, Lon: 151.209900}, {Lat: -33.865500, Lon: 151.210500}},
		{{Lat: 89.999999, Lon: -179.999999}, {Lat: -89.999999, Lon: 179.999999}},
		{{Lat: 48.1, Lon: 16.1}, {Lat: 48.1, Lon: 16.1}, {Lat: 48.100001, Lon: 16.100002}},
	}

	for _, points := range cases {
		encoded := Encode(points)
		decoded, err := Decode(encoded, 0, len(encoded))
		require.NoError(t, err)
		require.Len(t, decoded, len(points))
		for i := range points {
			require.InDelta(t, points[i].Lat, decoded[i].Lat, 1e-6)
			require.InDelta(t, points[i].Lon, decoded[i].Lon, 1e-6)
		}
	}
}

func TestDecode_StopsOnOutOfRangeCoordinate(t *testing.T) {
	// A first delta that pushes lat past 90 degrees: the raw varint
	// for +91e6 micro-degrees zigzag-encoded.
	buf := appendVarint(nil, 91_000_000)
	buf = appendVarint(buf, 0)

	decoded, err := Decode(buf, 0, len(buf))
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestDecode_CapsAtMaxPoints(t *testing.T) {
	points := make([]Point, maxPoints+500)
	lat, lon := 0.0, 0.0
	for i := range points {
		lat += 0.00001
		lon += 0.00001
		points[i] = Point{Lat: lat, Lon: lon}
	}
	encoded := Encode(points)
	decoded, err := Decode(encoded, 0, len(encoded))
	require.NoError(t, err)
	require.Len(t, decoded, maxPoints)
}

func TestDecode_OffsetOutOfRange(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, 10, 5)
	require.Error(t, err)
}
