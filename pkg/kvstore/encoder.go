package kvstore

import (
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/kelindar/binary"
)

// encodeRecords packs records with kelindar/binary and zstd-compresses the
// result, same as the teacher's encodeEdges/encode pair in pkg/kv/encoder.go
// except that zstd, which the teacher's go.mod names but never calls, is
// actually invoked here.
func encodeRecords(records []Record) ([]byte, error) {
	raw, err := binary.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("kvstore: marshal records: %w", err)
	}
	compressed, err := zstd.Compress(nil, raw)
	if err != nil {
		return nil, fmt.Errorf("kvstore: zstd compress: %w", err)
	}
	return compressed, nil
}

func decodeRecords(compressed []byte) ([]Record, error) {
	raw, err := zstd.Decompress(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("kvstore: zstd decompress: %w", err)
	}
	var records []Record
	if err := binary.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("kvstore: unmarshal records: %w", err)
	}
	return records, nil
}
