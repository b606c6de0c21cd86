package httpblob

import "github.com/klauspost/compress/zstd"

// compressor wraps a zstd encoder/decoder pair. Adapted from
// aweris-cafs/internal/compression/zstd.go, narrowed to this package's
// usage: payloads are compressed on the wire unless they are under 128
// bytes or would not shrink, in which case they are sent as-is.
type compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCompressor() (*compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &compressor{encoder: encoder, decoder: decoder}, nil
}

func (c *compressor) compress(data []byte) ([]byte, error) {
	if len(data) < 128 {
		return data, nil
	}
	out := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func (c *compressor) decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		// data may have been stored uncompressed by compress's size guard.
		return data, nil
	}
	return out, nil
}
