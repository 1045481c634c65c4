package partition

import (
	"bytes"
	"io"

	"github.com/go-sif/sifplan"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// LZ4PartitionSerializer is a partition serializer which uses the lz4 compression algorithm.
// It is safe for concurrent use.
type LZ4PartitionSerializer struct{}

// NewLZ4PartitionSerializer instantiates a new LZ4PartitionSerializer
func NewLZ4PartitionSerializer() sifplan.PartitionSerializer {
	return &LZ4PartitionSerializer{}
}

// Serialize serializes and compresses partition data to a write stream
func (s *LZ4PartitionSerializer) Serialize(w io.Writer, part sifplan.Partition) error {
	buf, err := ToBytes(part)
	if err != nil {
		return err
	}
	compressor := lz4.NewWriter(w)
	if _, err = compressor.Write(buf); err != nil {
		return err
	}
	return compressor.Close()
}

// Deserialize decompresses and deserializes partition data from a read stream
func (s *LZ4PartitionSerializer) Deserialize(r io.Reader, schema sifplan.Schema) (sifplan.Partition, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(lz4.NewReader(r)); err != nil {
		return nil, err
	}
	return FromBytes(buf.Bytes(), schema)
}

// ZstdPartitionSerializer is a partition serializer which uses zstd, trading speed for a
// better compression ratio. It is safe for concurrent use.
type ZstdPartitionSerializer struct {
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewZstdPartitionSerializer instantiates a new ZstdPartitionSerializer
func NewZstdPartitionSerializer() (*ZstdPartitionSerializer, error) {
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ZstdPartitionSerializer{compressor: compressor, decompressor: decompressor}, nil
}

// Compress serializes and compresses a Partition into a byte slice
func (s *ZstdPartitionSerializer) Compress(part sifplan.Partition) ([]byte, error) {
	buf, err := ToBytes(part)
	if err != nil {
		return nil, err
	}
	return s.compressor.EncodeAll(buf, make([]byte, 0, len(buf)/2)), nil
}

// Decompress reverses Compress
func (s *ZstdPartitionSerializer) Decompress(buf []byte, schema sifplan.Schema) (sifplan.OperablePartition, error) {
	raw, err := s.decompressor.DecodeAll(buf, nil)
	if err != nil {
		return nil, err
	}
	return FromBytes(raw, schema)
}

// Serialize serializes and compresses partition data to a write stream
func (s *ZstdPartitionSerializer) Serialize(w io.Writer, part sifplan.Partition) error {
	buf, err := s.Compress(part)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Deserialize decompresses and deserializes partition data from a read stream
func (s *ZstdPartitionSerializer) Deserialize(r io.Reader, schema sifplan.Schema) (sifplan.Partition, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return s.Decompress(buf, schema)
}

// Close releases resources held by this serializer
func (s *ZstdPartitionSerializer) Close() {
	s.compressor.Close()
	s.decompressor.Close()
}
