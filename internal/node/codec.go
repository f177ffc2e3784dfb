// Package node wraps the cracking engine with the node-level sink and
// query surface that spec §6 describes as out-of-core: LoadColumn,
// RangeQuery, and the bulk column loader backed by object storage.
package node

import (
	"encoding/binary"

	"github.com/golang/snappy"

	"github.com/arkilian/crackstore/internal/crackerr"
)

// EncodeColumn serializes a column's values as little-endian int32s and
// snappy-compresses the result: the payload format that
// LoadColumnFromStorage and LoadColumnsFromStorage decode.
func EncodeColumn(values []int32) []byte {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return snappy.Encode(nil, raw)
}

// DecodeColumn reverses EncodeColumn.
func DecodeColumn(blob []byte) ([]int32, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDecodeFailed, "decode column payload", err)
	}
	if len(raw)%4 != 0 {
		return nil, crackerr.New(crackerr.CategoryNode, crackerr.CodeDecodeFailed, "column payload length is not a multiple of 4")
	}

	values := make([]int32, len(raw)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}
