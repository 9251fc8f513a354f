package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor compresses encoded bucket bytes before they hit the backing
// store. Like codecs, compressors are selected by name from persisted
// metadata. Implementations must be safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Name() string
}

// CompressorByName returns a built-in compressor by its stable name.
func CompressorByName(name string) (Compressor, bool) {
	switch name {
	case "none":
		return None{}, true
	case "zstd":
		return mustZstd(), true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// DefaultCompressor is used for newly-built indexes. Buckets are small JSON
// lists, so no compression is the default; zstd/lz4 pay off for registries
// with very large buckets.
var DefaultCompressor Compressor = None{}

// None is the identity compressor.
type None struct{}

// Compress returns the data unchanged.
func (None) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress returns the data unchanged.
func (None) Decompress(data []byte) ([]byte, error) { return data, nil }

// Name returns the unique name of the compressor ("none").
func (None) Name() string { return "none" }

// Zstd compresses buckets with klauspost/compress zstd. The shared encoder
// and decoder are stateless via EncodeAll/DecodeAll and safe for concurrent
// use.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd creates a Zstd compressor.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func mustZstd() *Zstd {
	z, err := NewZstd()
	if err != nil {
		panic(err) // default options never fail
	}
	return z
}

// Compress encodes the data as a zstd frame.
func (z *Zstd) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decodes a zstd frame.
func (z *Zstd) Decompress(data []byte) ([]byte, error) {
	return z.dec.DecodeAll(data, nil)
}

// Name returns the unique name of the compressor ("zstd").
func (z *Zstd) Name() string { return "zstd" }

// LZ4 compresses buckets as lz4 frames via pierrec/lz4.
type LZ4 struct{}

// Compress encodes the data as an lz4 frame.
func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes an lz4 frame.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// Name returns the unique name of the compressor ("lz4").
func (LZ4) Name() string { return "lz4" }
