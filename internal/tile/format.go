// Package tile implements the binary tile decoder (spec.md §4.1): it
// parses a single .gph tile into an immutable, self-contained Tile
// that needs no further file-system access to answer queries.
package tile

// Byte layout constants. These offsets are the external wire format
// (spec.md §3, §6.1) and are compatibility-critical — never reorder
// without a format version bump.
const (
	HeaderSize      = 272
	NodeRecordSize  = 32
	TransitionSize  = 8
	DirectedEdgeSize = 48
)

// Header field offsets, little-endian throughout.
const (
	hdrGraphID        = 0  // uint64, 46 bits used
	hdrBaseLat        = 8  // float64
	hdrBaseLon        = 16 // float64
	hdrNodeCount      = 24 // uint32
	hdrEdgeCount      = 28 // uint32
	hdrTransitionCount = 32 // uint32
	hdrEdgeInfoOffset = 36 // uint32, byte offset of edge-info blob from tile start
	hdrTextOffset     = 40 // uint32, byte offset of text blob from tile start
	hdrMagic          = 44 // uint32, format sentinel
	hdrVersion        = 48 // uint32
)

// Magic is the sentinel stored in every valid header.
const Magic = 0x56424b31 // "VBK1"

// CurrentVersion is the only format version this decoder accepts.
const CurrentVersion = 1

// Node field offsets within a 32-byte record.
const (
	nodeLatOffset    = 0  // int32, 1e-7 degree units, added to tile base lat
	nodeLonOffset    = 4  // int32, 1e-7 degree units, added to tile base lon
	nodeFirstEdge    = 8  // uint32
	nodeEdgeCount    = 12 // uint8, 0-127
	nodeFlags        = 13 // uint8: bit0 hasUp, bit1 hasDown
	nodeFirstTransIdx = 16 // uint32
)

// Node flag bits.
const (
	nodeFlagHasUp   = 1 << 0
	nodeFlagHasDown = 1 << 1
)

// Transition field offsets within an 8-byte record.
const (
	transGraphID = 0 // 6 bytes, little-endian, 46 bits used
	transFlags   = 6 // uint8: bit0 = up (1) vs down (0)
)

// DirectedEdge field offsets within a 48-byte record.
const (
	edgeEndNodeID      = 0  // uint64, 46 bits used
	edgeOppIndex       = 8  // uint8, 0-127
	edgeInfoOffset     = 9  // uint32
	edgePostedSpeed    = 13 // uint8, kph
	edgeUseCategory    = 14 // uint8
	edgeClassification = 15 // uint8, 0-7
	edgeSurface        = 16 // uint8, 0-7
	edgeCycleLane      = 17 // uint8, 0-3
	edgeLaneCount      = 18 // uint8
	edgeBoolFlags      = 19 // uint8
	edgeGrade          = 20 // uint8, 0-15, low nibble
	edgeForwardAccess  = 21 // uint16
	edgeReverseAccess  = 23 // uint16
	edgeLength         = 25 // 3 bytes, 24-bit length in metres
)

// DirectedEdge bool-flag bits within edgeBoolFlags.
const (
	edgeFlagShoulder    = 1 << 0
	edgeFlagBikeNetwork = 1 << 1
	edgeFlagUseSidepath = 1 << 2
	edgeFlagDismount    = 1 << 3
	edgeFlagTruckRoute  = 1 << 4
)

// BicycleAccessBit is the bit within an access mask granting bicycle access.
const BicycleAccessBit = 1 << 2
