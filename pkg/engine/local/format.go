package local

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/d3v-null/rubbl/pkg/errors"
)

// Compression selects the codec applied to column payload files.
type Compression string

const (
	// CompressionNone stores column payloads uncompressed.
	CompressionNone Compression = "none"
	// CompressionLZ4 favors speed over ratio.
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd favors ratio at a good speed; the default.
	CompressionZstd Compression = "zstd"
)

// column file header: magic, format version, codec tag
var columnMagic = []byte{'R', 'B', 'L', 'C'}

const formatVersion = 1

const (
	codecNone byte = 0
	codecLZ4  byte = 1
	codecZstd byte = 2
)

func codecByte(c Compression) (byte, error) {
	switch c {
	case CompressionNone:
		return codecNone, nil
	case CompressionLZ4:
		return codecLZ4, nil
	case CompressionZstd, "":
		return codecZstd, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeEngine, "unknown compression codec %q", c)
	}
}

// encodeColumnFile frames and compresses a raw column payload.
func encodeColumnFile(c Compression, payload []byte) ([]byte, error) {
	tag, err := codecByte(c)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(columnMagic)
	buf.WriteByte(formatVersion)
	buf.WriteByte(tag)

	switch tag {
	case codecNone:
		buf.Write(payload)
	case codecLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEngine, "lz4 compression failed")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEngine, "lz4 compression failed")
		}
	case codecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEngine, "zstd encoder setup failed")
		}
		buf.Write(enc.EncodeAll(payload, nil))
		if err := enc.Close(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeEngine, "zstd compression failed")
		}
	}

	return buf.Bytes(), nil
}

// decodeColumnFile unframes and decompresses a column payload. The codec is
// read from the header, so tables written with one codec open fine under an
// engine configured with another.
func decodeColumnFile(data []byte) ([]byte, error) {
	if len(data) < len(columnMagic)+2 || !bytes.Equal(data[:len(columnMagic)], columnMagic) {
		return nil, errors.New(errors.ErrorTypeOpen, "column file has no recognizable header")
	}
	version := data[len(columnMagic)]
	if version != formatVersion {
		return nil, errors.Newf(errors.ErrorTypeOpen, "column file format version %d not supported", version)
	}
	tag := data[len(columnMagic)+1]
	body := data[len(columnMagic)+2:]

	switch tag {
	case codecNone:
		return body, nil
	case codecLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeOpen, "lz4 decompression failed")
		}
		return out, nil
	case codecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeOpen, "zstd decoder setup failed")
		}
		defer dec.Close()
		out, err := dec.DecodeAll(body, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeOpen, "zstd decompression failed")
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeOpen, "column file uses unknown codec %d", tag)
	}
}
