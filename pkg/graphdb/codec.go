package graphdb

import (
	"encoding/binary"

	"github.com/annisql/graphannis/pkg/ids"
)

// Fixed-width binary encodings for the Badger-backed persisted form of
// components, the string pool, and the annotation store. Keys are encoded
// so that Badger's byte-order iteration naturally yields ascending
// NodeID/position order, which both the linear-chain reconstruction and
// the annotation store's insertion-order replay depend on.

const (
	tagEdge     = byte(0x01)
	tagEdgeAnno = byte(0x02)
	tagChainPos = byte(0x03)
)

func putUint64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func getInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func edgeKey(e ids.Edge) []byte {
	key := make([]byte, 1+8+8)
	key[0] = tagEdge
	binary.BigEndian.PutUint64(key[1:9], uint64(e.Source))
	binary.BigEndian.PutUint64(key[9:17], uint64(e.Target))
	return key
}

func decodeEdgeKey(key []byte) ids.Edge {
	return ids.Edge{
		Source: ids.NodeID(getInt64(key[1:9])),
		Target: ids.NodeID(getInt64(key[9:17])),
	}
}

func edgeAnnoKey(e ids.Edge, seq int) []byte {
	key := make([]byte, 1+8+8+4)
	key[0] = tagEdgeAnno
	binary.BigEndian.PutUint64(key[1:9], uint64(e.Source))
	binary.BigEndian.PutUint64(key[9:17], uint64(e.Target))
	binary.BigEndian.PutUint32(key[17:21], uint32(seq))
	return key
}

func decodeEdgeAnnoKey(key []byte) ids.Edge {
	return ids.Edge{
		Source: ids.NodeID(getInt64(key[1:9])),
		Target: ids.NodeID(getInt64(key[9:17])),
	}
}

func encodeAnnotation(a ids.Annotation) []byte {
	val := make([]byte, 24)
	binary.BigEndian.PutUint64(val[0:8], uint64(a.Key.Ns))
	binary.BigEndian.PutUint64(val[8:16], uint64(a.Key.Name))
	binary.BigEndian.PutUint64(val[16:24], uint64(a.Value))
	return val
}

func decodeAnnotation(val []byte) ids.Annotation {
	return ids.Annotation{
		Key: ids.AnnoKey{
			Ns:   ids.StringID(getInt64(val[0:8])),
			Name: ids.StringID(getInt64(val[8:16])),
		},
		Value: ids.StringID(getInt64(val[16:24])),
	}
}

func chainPosKey(pos int) []byte {
	key := make([]byte, 1+8)
	key[0] = tagChainPos
	binary.BigEndian.PutUint64(key[1:9], uint64(pos))
	return key
}

func stringKey(id ids.StringID) []byte {
	return putUint64(int64(id))
}

func decodeStringKey(key []byte) ids.StringID {
	return ids.StringID(getInt64(key))
}

func nodeAnnoKey(node ids.NodeID, seq int) []byte {
	key := make([]byte, 8+4)
	binary.BigEndian.PutUint64(key[0:8], uint64(node))
	binary.BigEndian.PutUint32(key[8:12], uint32(seq))
	return key
}

func decodeNodeAnnoKey(key []byte) ids.NodeID {
	return ids.NodeID(getInt64(key[0:8]))
}
