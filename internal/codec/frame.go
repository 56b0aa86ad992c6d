package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// FlagRaw marks an uncompressed CBOR body.
	FlagRaw byte = 0
	// FlagZstd marks a zstd-compressed CBOR body.
	FlagZstd byte = 1
)

// CompressThreshold is the body size at which frames are compressed.
const CompressThreshold = 4 * 1024

// MaxFrameSize bounds a single frame. Image payloads are capped at 5 MB
// by the upload pipeline; a full sync response can carry many of them.
const MaxFrameSize = 64 * 1024 * 1024

// ErrFrameTooLarge is returned when a frame header announces more than
// MaxFrameSize bytes.
var ErrFrameTooLarge = errors.New("codec: frame exceeds maximum size")

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// EncodeFrame marshals v and returns flags+body, compressing when the
// body reaches CompressThreshold.
func EncodeFrame(v any) ([]byte, error) {
	body, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	if len(body) < CompressThreshold {
		return append([]byte{FlagRaw}, body...), nil
	}

	enc, _, err := zstdCodecs()
	if err != nil {
		return nil, fmt.Errorf("encode frame: zstd: %w", err)
	}
	out := make([]byte, 1, len(body)/2+1)
	out[0] = FlagZstd
	return enc.EncodeAll(body, out), nil
}

// DecodeFrame reverses EncodeFrame into v.
func DecodeFrame(frame []byte, v any) error {
	if len(frame) == 0 {
		return fmt.Errorf("decode frame: empty frame")
	}

	body := frame[1:]
	switch frame[0] {
	case FlagRaw:
	case FlagZstd:
		_, dec, err := zstdCodecs()
		if err != nil {
			return fmt.Errorf("decode frame: zstd: %w", err)
		}
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("decode frame: decompress: %w", err)
		}
	default:
		return fmt.Errorf("decode frame: unknown flags 0x%02x", frame[0])
	}

	if err := Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}

// WriteFrame encodes v and writes one length-prefixed frame to w.
func WriteFrame(w io.Writer, v any) error {
	frame, err := EncodeFrame(v)
	if err != nil {
		return err
	}
	return WriteRaw(w, frame)
}

// WriteRaw writes an already-encoded frame with its length prefix.
func WriteRaw(w io.Writer, frame []byte) error {
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadRaw reads one length-prefixed frame from r without decoding it.
// Returns io.EOF when r is exhausted at a frame boundary.
func ReadRaw(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read frame header: %w", err)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return frame, nil
}

// ReadFrame reads and decodes one frame from r into v.
func ReadFrame(r io.Reader, v any) error {
	frame, err := ReadRaw(r)
	if err != nil {
		return err
	}
	return DecodeFrame(frame, v)
}
