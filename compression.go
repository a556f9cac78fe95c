package recorder

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"

	"github.com/goforj/recorder/recordercore"
)

// CompressionCodec represents a tape compression algorithm.
type CompressionCodec = recordercore.CompressionCodec

const (
	CompressionNone = recordercore.CompressionNone
	CompressionGzip = recordercore.CompressionGzip
)

var (
	compressMagic = []byte("CMP1")

	ErrTapeTooLarge       = errors.New("recorder: tape exceeds max size")
	ErrUnsupportedCodec   = errors.New("recorder: unsupported compression codec")
	ErrCorruptCompression = errors.New("recorder: corrupt compressed tape")
)

func encodeTape(codec CompressionCodec, max int, tape []byte) ([]byte, error) {
	var out []byte
	switch codec {
	case CompressionNone, "":
		out = tape
	case CompressionGzip:
		var buf bytes.Buffer
		buf.Write(compressMagic)
		_ = buf.WriteByte('g')
		zw, _ := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if _, err := zw.Write(tape); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	default:
		return nil, ErrUnsupportedCodec
	}
	if max > 0 && len(out) > max {
		return nil, ErrTapeTooLarge
	}
	return out, nil
}

// decodeTape passes uncompressed tapes through so a store can switch codecs
// without invalidating tapes already on disk.
func decodeTape(in []byte) ([]byte, error) {
	if len(in) < len(compressMagic)+1 {
		return in, nil
	}
	if !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	codec := in[len(compressMagic)]
	payload := in[len(compressMagic)+1:]
	switch codec {
	case 'g':
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer gr.Close()
		out, err := io.ReadAll(gr)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
