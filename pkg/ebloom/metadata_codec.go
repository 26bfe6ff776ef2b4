package ebloom

import (
	"encoding/binary"
	"fmt"
)

// metadataRecordSize is the fixed width of one persisted levelMetadata
// record: three little-endian u64 fields (spec §6 on-disk layout).
const metadataRecordSize = 24

// marshalMetadata packs num_levels levelMetadata records into the
// fixed-width array format spec §6 describes.
func marshalMetadata(metas []levelMetadata) []byte {
	out := make([]byte, len(metas)*metadataRecordSize)
	for i, m := range metas {
		off := i * metadataRecordSize
		binary.LittleEndian.PutUint64(out[off:], m.CreatedAtMS)
		binary.LittleEndian.PutUint64(out[off+8:], m.InsertCount)
		binary.LittleEndian.PutUint64(out[off+16:], m.LastSnapshotAtMS)
	}
	return out
}

// unmarshalMetadata unpacks a persisted metadata array. An empty input
// (never written) yields an empty slice, matching spec §4.5
// "load_metadata() -> returns stored array, or empty if never written".
func unmarshalMetadata(data []byte) ([]levelMetadata, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%metadataRecordSize != 0 {
		return nil, fmt.Errorf("%w: metadata array length %d is not a multiple of %d", ErrSerializationError, len(data), metadataRecordSize)
	}
	n := len(data) / metadataRecordSize
	out := make([]levelMetadata, n)
	for i := range out {
		off := i * metadataRecordSize
		out[i] = levelMetadata{
			CreatedAtMS:      binary.LittleEndian.Uint64(data[off:]),
			InsertCount:      binary.LittleEndian.Uint64(data[off+8:]),
			LastSnapshotAtMS: binary.LittleEndian.Uint64(data[off+16:]),
		}
	}
	return out, nil
}
