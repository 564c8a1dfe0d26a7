package tile

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
	"github.com/smatkovi/valhalla-bike-router/internal/routerr"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Decode parses a single tile's bytes, transparently gzip-decompressing
// when the input starts with the gzip magic. The returned Tile is
// immutable and independent of where the bytes came from.
func Decode(raw []byte) (*Tile, error) {
	data, err := maybeGunzip(raw)
	if err != nil {
		return nil, routerr.NewTileCorrupt(0, 0, "gzip: "+err.Error())
	}

	if len(data) < HeaderSize {
		return nil, routerr.NewTileCorrupt(0, 0, "truncated header")
	}

	id := graphid.ID(binary.LittleEndian.Uint64(data[hdrGraphID:]))
	level := id.Level()
	tileID := id.TileID()

	magic := binary.LittleEndian.Uint32(data[hdrMagic:])
	version := binary.LittleEndian.Uint32(data[hdrVersion:])
	if magic != Magic {
		return nil, routerr.NewTileCorrupt(level, tileID, "bad magic")
	}
	if version != CurrentVersion {
		return nil, routerr.NewTileCorrupt(level, tileID, "unsupported version")
	}

	baseLat := float64FromBits(data[hdrBaseLat:])
	baseLon := float64FromBits(data[hdrBaseLon:])
	nodeCount := binary.LittleEndian.Uint32(data[hdrNodeCount:])
	edgeCount := binary.LittleEndian.Uint32(data[hdrEdgeCount:])
	transCount := binary.LittleEndian.Uint32(data[hdrTransitionCount:])
	edgeInfoOffset := binary.LittleEndian.Uint32(data[hdrEdgeInfoOffset:])
	textOffset := binary.LittleEndian.Uint32(data[hdrTextOffset:])

	nodesEnd := HeaderSize + int(nodeCount)*NodeRecordSize
	transEnd := nodesEnd + int(transCount)*TransitionSize
	edgesEnd := transEnd + int(edgeCount)*DirectedEdgeSize

	if len(data) < edgesEnd {
		return nil, routerr.NewTileCorrupt(level, tileID, "truncated node/transition/edge arrays")
	}
	if int(edgeInfoOffset) > len(data) || int(textOffset) > len(data) {
		return nil, routerr.NewTileCorrupt(level, tileID, "edge-info/text offset out of range")
	}

	t := &Tile{
		ID:           id,
		BaseLat:      baseLat,
		BaseLon:      baseLon,
		Nodes:        make([]Node, nodeCount),
		Transitions:  make([]Transition, transCount),
		Edges:        make([]DirectedEdge, edgeCount),
		spatialIndex: make(map[bucketKey][]uint32, nodeCount),
	}

	for i := uint32(0); i < nodeCount; i++ {
		rec := data[HeaderSize+int(i)*NodeRecordSize:]
		n := decodeNode(rec, baseLat, baseLon)
		t.Nodes[i] = n
		t.spatialIndex[bucketFor(n.Lat, n.Lon)] = append(t.spatialIndex[bucketFor(n.Lat, n.Lon)], i)
	}

	for i := uint32(0); i < transCount; i++ {
		rec := data[nodesEnd+int(i)*TransitionSize:]
		t.Transitions[i] = decodeTransition(rec)
	}

	globalTileCount := uint32(graphid.TileCount(level))
	t.edgeInfos = make([]edgeInfoLocation, edgeCount)
	for i := uint32(0); i < edgeCount; i++ {
		rec := data[transEnd+int(i)*DirectedEdgeSize:]
		e := decodeEdge(rec)

		// Integrity: mark unusable if the end node's tile is out of
		// range for its level, rather than failing the whole tile.
		endLevel := e.EndNode.Level()
		endTile := e.EndNode.TileID()
		endCount := uint32(graphid.TileCount(endLevel))
		if endLevel > graphid.LevelLocal || endTile >= endCount || endCount == 0 {
			e.Usable = false
		} else if endTile >= globalTileCount && endLevel == level {
			e.Usable = false
		} else {
			e.Usable = true
		}

		t.Edges[i] = e
		t.edgeInfos[i] = edgeInfoLocation{offset: e.EdgeInfoOffset, valid: true}
	}

	if int(edgeInfoOffset) <= len(data) {
		end := len(data)
		if int(textOffset) > int(edgeInfoOffset) && int(textOffset) <= len(data) {
			end = int(textOffset)
		}
		t.edgeInfoBlob = data[edgeInfoOffset:end]
	}
	if int(textOffset) <= len(data) {
		t.textBlob = data[textOffset:]
	}

	return t, nil
}

func maybeGunzip(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != gzipMagic[0] || raw[1] != gzipMagic[1] {
		return raw, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func float64FromBits(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func decodeNode(rec []byte, baseLat, baseLon float64) Node {
	latOffset := int32(binary.LittleEndian.Uint32(rec[nodeLatOffset:]))
	lonOffset := int32(binary.LittleEndian.Uint32(rec[nodeLonOffset:]))
	flags := rec[nodeFlags]

	return Node{
		Lat:            baseLat + float64(latOffset)*1e-7,
		Lon:            baseLon + float64(lonOffset)*1e-7,
		FirstEdgeIndex: binary.LittleEndian.Uint32(rec[nodeFirstEdge:]),
		EdgeCount:      rec[nodeEdgeCount] & 0x7f,
		FirstTransIdx:  binary.LittleEndian.Uint32(rec[nodeFirstTransIdx:]),
		HasUp:          flags&nodeFlagHasUp != 0,
		HasDown:        flags&nodeFlagHasDown != 0,
	}
}

func decodeTransition(rec []byte) Transition {
	var idBytes [8]byte
	copy(idBytes[:6], rec[transGraphID:transGraphID+6])
	id := graphid.ID(binary.LittleEndian.Uint64(idBytes[:]))
	flags := rec[transFlags]
	return Transition{
		EndNode: id,
		Up:      flags&1 != 0,
	}
}

func decodeEdge(rec []byte) DirectedEdge {
	endNode := graphid.ID(binary.LittleEndian.Uint64(rec[edgeEndNodeID:]))
	boolFlags := rec[edgeBoolFlags]

	length := uint32(rec[edgeLength]) | uint32(rec[edgeLength+1])<<8 | uint32(rec[edgeLength+2])<<16

	return DirectedEdge{
		EndNode:        endNode,
		OppIndex:       rec[edgeOppIndex] & 0x7f,
		EdgeInfoOffset: binary.LittleEndian.Uint32(rec[edgeInfoOffset:]),
		PostedSpeed:    rec[edgePostedSpeed],
		Use:            UseCategory(rec[edgeUseCategory]),
		Classification: rec[edgeClassification] & 0x07,
		Surface:        rec[edgeSurface] & 0x07,
		CycleLane:      rec[edgeCycleLane] & 0x03,
		LaneCount:      rec[edgeLaneCount],
		Grade:          rec[edgeGrade] & 0x0f,
		Shoulder:       boolFlags&edgeFlagShoulder != 0,
		BikeNetwork:    boolFlags&edgeFlagBikeNetwork != 0,
		UseSidepath:    boolFlags&edgeFlagUseSidepath != 0,
		Dismount:       boolFlags&edgeFlagDismount != 0,
		TruckRoute:     boolFlags&edgeFlagTruckRoute != 0,
		ForwardAccess:  binary.LittleEndian.Uint16(rec[edgeForwardAccess:]),
		ReverseAccess:  binary.LittleEndian.Uint16(rec[edgeReverseAccess:]),
		LengthMeters:   length,
	}
}

func decodeEdgeInfoAt(blob []byte, offset uint32) (EdgeInfo, bool) {
	if int(offset) >= len(blob) {
		return EdgeInfo{}, false
	}
	rec := blob[offset:]
	if len(rec) < 3 {
		return EdgeInfo{}, false
	}
	nameCount := rec[0]
	shapeSize := binary.LittleEndian.Uint16(rec[1:3])
	pos := 3

	refs := make([]uint32, nameCount)
	for i := 0; i < int(nameCount); i++ {
		if pos+4 > len(rec) {
			return EdgeInfo{}, false
		}
		refs[i] = binary.LittleEndian.Uint32(rec[pos:])
		pos += 4
	}

	if pos+int(shapeSize) > len(rec) {
		return EdgeInfo{}, false
	}
	shapeData := rec[pos : pos+int(shapeSize)]

	return EdgeInfo{NameRefs: refs, ShapeData: shapeData}, true
}
