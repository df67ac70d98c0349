package formats

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownCompressor is returned for compressor names or ids that have
// no implementation.
var ErrUnknownCompressor = errors.New("unknown compressor")

// CompressorKind identifies the byte compressor used for the vertex and
// index payloads. It is stored in the second reserved header word; zero
// is zstd.
type CompressorKind uint64

// Supported compressors.
const (
	CompressorZstd   CompressorKind = 0
	CompressorSnappy CompressorKind = 1
)

// DefaultCompressionLevel is the zstd level used when none is given.
const DefaultCompressionLevel = 5

// String returns the config name of the compressor.
func (k CompressorKind) String() string {
	switch k {
	case CompressorZstd:
		return "zstd"
	case CompressorSnappy:
		return "snappy"
	default:
		return fmt.Sprintf("CompressorKind(%d)", uint64(k))
	}
}

// ParseCompressorKind maps a config name to a kind. An empty name is zstd.
func ParseCompressorKind(name string) (CompressorKind, error) {
	switch name {
	case "", "zstd":
		return CompressorZstd, nil
	case "snappy":
		return CompressorSnappy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompressor, name)
	}
}

// Compressor compresses whole buffers. Both methods append to dst and
// return the extended slice.
type Compressor interface {
	Compress(dst, src []byte) ([]byte, error)
	// Decompress expects exactly size bytes of output.
	Decompress(dst, src []byte, size int) ([]byte, error)
	Close() error
}

// CodecContext carries the compressor state for a single encode or decode
// and must be closed when that operation ends.
type CodecContext struct {
	kind  CompressorKind
	level int
	comp  Compressor
}

// NewCodecContext opens a context for kind. level only applies to zstd;
// values <= 0 mean DefaultCompressionLevel.
func NewCodecContext(kind CompressorKind, level int) (*CodecContext, error) {
	if level <= 0 {
		level = DefaultCompressionLevel
	}
	var comp Compressor
	switch kind {
	case CompressorZstd:
		comp = &zstdCompressor{level: level}
	case CompressorSnappy:
		comp = snappyCompressor{}
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCompressor, uint64(kind))
	}
	return &CodecContext{kind: kind, level: level, comp: comp}, nil
}

// Kind returns the context's compressor kind.
func (c *CodecContext) Kind() CompressorKind {
	return c.kind
}

// Level returns the compression level.
func (c *CodecContext) Level() int {
	return c.level
}

// Close releases encoder and decoder resources.
func (c *CodecContext) Close() error {
	return c.comp.Close()
}

type zstdCompressor struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func (z *zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	if z.enc == nil {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(z.level)),
			zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		z.enc = enc
	}
	return z.enc.EncodeAll(src, dst), nil
}

func (z *zstdCompressor) Decompress(dst, src []byte, size int) ([]byte, error) {
	if z.dec == nil {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxABMBuffer))
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		z.dec = dec
	}
	if size == 0 && len(src) == 0 {
		return dst, nil
	}
	// reject a frame that declares the wrong size before inflating it
	var h zstd.Header
	if err := h.Decode(src); err != nil {
		return nil, fmt.Errorf("zstd header: %w", err)
	}
	if h.HasFCS && h.FrameContentSize != uint64(size) {
		return nil, fmt.Errorf("%w: zstd frame holds %d bytes, want %d", ErrCorruptABMData, h.FrameContentSize, size)
	}
	out, err := z.dec.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return out, nil
}

func (z *zstdCompressor) Close() error {
	if z.enc != nil {
		if err := z.enc.Close(); err != nil {
			return err
		}
		z.enc = nil
	}
	if z.dec != nil {
		z.dec.Close()
		z.dec = nil
	}
	return nil
}

type snappyCompressor struct{}

func (snappyCompressor) Compress(dst, src []byte) ([]byte, error) {
	enc := snappy.Encode(nil, src)
	return append(dst, enc...), nil
}

func (snappyCompressor) Decompress(dst, src []byte, size int) ([]byte, error) {
	if size == 0 && len(src) == 0 {
		return dst, nil
	}
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("snappy: decoded length %d, want %d", n, size)
	}
	out, err := snappy.Decode(make([]byte, n), src)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	return append(dst, out...), nil
}

func (snappyCompressor) Close() error {
	return nil
}
