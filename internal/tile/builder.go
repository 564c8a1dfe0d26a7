package tile

import (
	"encoding/binary"
	"math"

	"github.com/smatkovi/valhalla-bike-router/internal/graphid"
)

// Builder constructs the raw bytes of a tile programmatically. It
// exists for tests: synthetic fixtures exercise Decode exactly the
// way production tiles read from disk would.
type Builder struct {
	level   graphid.Level
	tileID  uint32
	baseLat float64
	baseLon float64

	nodes       []nodeSpec
	transitions []Transition
	edges       []DirectedEdge
	edgeInfos   [][]byte // one entry per edge, may be nil
	names       []string
}

type nodeSpec struct {
	lat, lon       float64
	firstEdge      uint32
	edgeCount      uint8
	firstTransIdx  uint32
	hasUp, hasDown bool
}

// NewBuilder starts a tile at (level, tileID) with the given origin.
func NewBuilder(level graphid.Level, tileID uint32, baseLat, baseLon float64) *Builder {
	return &Builder{level: level, tileID: tileID, baseLat: baseLat, baseLon: baseLon}
}

// AddNode appends a node and returns its local index.
func (b *Builder) AddNode(lat, lon float64) uint32 {
	b.nodes = append(b.nodes, nodeSpec{lat: lat, lon: lon})
	return uint32(len(b.nodes) - 1)
}

// AddEdge appends a directed edge owned by node localID, with an
// optional encoded shape byte payload. Edges must be added in node
// order (all of a node's edges contiguously) to match the on-disk
// contiguous-run invariant.
func (b *Builder) AddEdge(localID uint32, e DirectedEdge, shapeData []byte) int {
	n := &b.nodes[localID]
	if n.edgeCount == 0 {
		n.firstEdge = uint32(len(b.edges))
	}
	n.edgeCount++
	e.EdgeInfoOffset = 0 // assigned in Build
	b.edges = append(b.edges, e)
	b.edgeInfos = append(b.edgeInfos, shapeData)
	return len(b.edges) - 1
}

// AddTransition appends a transition owned by node localID.
func (b *Builder) AddTransition(localID uint32, end graphid.ID, up bool) {
	n := &b.nodes[localID]
	if !n.hasUp && !n.hasDown {
		n.firstTransIdx = uint32(len(b.transitions))
	}
	if up {
		n.hasUp = true
	} else {
		n.hasDown = true
	}
	b.transitions = append(b.transitions, Transition{EndNode: end, Up: up})
}

// NodeGraphID returns the GraphId for a local node index in this tile.
func (b *Builder) NodeGraphID(localID uint32) graphid.ID {
	return graphid.New(b.level, b.tileID, localID)
}

// Build serializes the accumulated spec into raw tile bytes.
func (b *Builder) Build() []byte {
	edgeInfoBlob, offsets := buildEdgeInfoBlob(b.edgeInfos)

	nodesBytes := make([]byte, len(b.nodes)*NodeRecordSize)
	for i, n := range b.nodes {
		rec := nodesBytes[i*NodeRecordSize:]
		latOffset := int32(math.Round((n.lat - b.baseLat) / 1e-7))
		lonOffset := int32(math.Round((n.lon - b.baseLon) / 1e-7))
		binary.LittleEndian.PutUint32(rec[nodeLatOffset:], uint32(latOffset))
		binary.LittleEndian.PutUint32(rec[nodeLonOffset:], uint32(lonOffset))
		binary.LittleEndian.PutUint32(rec[nodeFirstEdge:], n.firstEdge)
		rec[nodeEdgeCount] = n.edgeCount & 0x7f
		var flags uint8
		if n.hasUp {
			flags |= nodeFlagHasUp
		}
		if n.hasDown {
			flags |= nodeFlagHasDown
		}
		rec[nodeFlags] = flags
		binary.LittleEndian.PutUint32(rec[nodeFirstTransIdx:], n.firstTransIdx)
	}

	transBytes := make([]byte, len(b.transitions)*TransitionSize)
	for i, tr := range b.transitions {
		rec := transBytes[i*TransitionSize:]
		var idBytes [8]byte
		binary.LittleEndian.PutUint64(idBytes[:], uint64(tr.EndNode))
		copy(rec[transGraphID:transGraphID+6], idBytes[:6])
		if tr.Up {
			rec[transFlags] = 1
		}
	}

	edgesBytes := make([]byte, len(b.edges)*DirectedEdgeSize)
	for i, e := range b.edges {
		rec := edgesBytes[i*DirectedEdgeSize:]
		binary.LittleEndian.PutUint64(rec[edgeEndNodeID:], uint64(e.EndNode))
		rec[edgeOppIndex] = e.OppIndex & 0x7f
		binary.LittleEndian.PutUint32(rec[edgeInfoOffset:], offsets[i])
		rec[edgePostedSpeed] = e.PostedSpeed
		rec[edgeUseCategory] = uint8(e.Use)
		rec[edgeClassification] = e.Classification & 0x07
		rec[edgeSurface] = e.Surface & 0x07
		rec[edgeCycleLane] = e.CycleLane & 0x03
		rec[edgeLaneCount] = e.LaneCount
		var flags uint8
		if e.Shoulder {
			flags |= edgeFlagShoulder
		}
		if e.BikeNetwork {
			flags |= edgeFlagBikeNetwork
		}
		if e.UseSidepath {
			flags |= edgeFlagUseSidepath
		}
		if e.Dismount {
			flags |= edgeFlagDismount
		}
		if e.TruckRoute {
			flags |= edgeFlagTruckRoute
		}
		rec[edgeBoolFlags] = flags
		rec[edgeGrade] = e.Grade & 0x0f
		binary.LittleEndian.PutUint16(rec[edgeForwardAccess:], e.ForwardAccess)
		binary.LittleEndian.PutUint16(rec[edgeReverseAccess:], e.ReverseAccess)
		rec[edgeLength] = byte(e.LengthMeters)
		rec[edgeLength+1] = byte(e.LengthMeters >> 8)
		rec[edgeLength+2] = byte(e.LengthMeters >> 16)
	}

	nodesEnd := HeaderSize + len(nodesBytes)
	transEnd := nodesEnd + len(transBytes)
	edgesEnd := transEnd + len(edgesBytes)
	edgeInfoOffset := edgesEnd
	textOffset := edgeInfoOffset + len(edgeInfoBlob)

	out := make([]byte, textOffset)

	id := graphid.New(b.level, b.tileID, 0)
	binary.LittleEndian.PutUint64(out[hdrGraphID:], uint64(id))
	binary.LittleEndian.PutUint64(out[hdrBaseLat:], math.Float64bits(b.baseLat))
	binary.LittleEndian.PutUint64(out[hdrBaseLon:], math.Float64bits(b.baseLon))
	binary.LittleEndian.PutUint32(out[hdrNodeCount:], uint32(len(b.nodes)))
	binary.LittleEndian.PutUint32(out[hdrEdgeCount:], uint32(len(b.edges)))
	binary.LittleEndian.PutUint32(out[hdrTransitionCount:], uint32(len(b.transitions)))
	binary.LittleEndian.PutUint32(out[hdrEdgeInfoOffset:], uint32(edgeInfoOffset))
	binary.LittleEndian.PutUint32(out[hdrTextOffset:], uint32(textOffset))
	binary.LittleEndian.PutUint32(out[hdrMagic:], Magic)
	binary.LittleEndian.PutUint32(out[hdrVersion:], CurrentVersion)

	copy(out[HeaderSize:], nodesBytes)
	copy(out[nodesEnd:], transBytes)
	copy(out[transEnd:], edgesBytes)
	copy(out[edgeInfoOffset:], edgeInfoBlob)

	return out
}

// buildEdgeInfoBlob packs each edge's shape bytes into a contiguous
// blob with a (nameCount=0, shapeSize) header per record, returning
// the blob and each edge's offset into it.
func buildEdgeInfoBlob(shapes [][]byte) ([]byte, []uint32) {
	var blob []byte
	offsets := make([]uint32, len(shapes))
	for i, s := range shapes {
		offsets[i] = uint32(len(blob))
		header := make([]byte, 3)
		header[0] = 0 // nameCount
		binary.LittleEndian.PutUint16(header[1:], uint16(len(s)))
		blob = append(blob, header...)
		blob = append(blob, s...)
	}
	return blob, offsets
}
