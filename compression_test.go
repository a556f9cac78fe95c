package recorder

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestEncodeTapeRespectsLimitEqualsLen(t *testing.T) {
	out, err := encodeTape(CompressionNone, 3, []byte("abc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "abc" {
		t.Fatalf("unexpected output: %s", string(out))
	}
	if _, err := encodeTape(CompressionNone, 2, []byte("abc")); !errors.Is(err, ErrTapeTooLarge) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestDecodeTapePassThrough(t *testing.T) {
	for _, in := range []string{"plain", "tiny", ""} {
		out, err := decodeTape([]byte(in))
		if err != nil {
			t.Fatalf("decode err: %v", err)
		}
		if string(out) != in {
			t.Fatalf("expected passthrough for %q", in)
		}
	}
}

func TestGzipTapeRoundTrip(t *testing.T) {
	tape := bytes.Repeat([]byte("GetUser;"), 512)
	encoded, err := encodeTape(CompressionGzip, 0, tape)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if len(encoded) >= len(tape) {
		t.Fatalf("expected repetitive tape to shrink, %d >= %d", len(encoded), len(tape))
	}
	decoded, err := decodeTape(encoded)
	if err != nil || !bytes.Equal(decoded, tape) {
		t.Fatalf("unexpected decode: err=%v", err)
	}
}

func TestDecodeTapeErrors(t *testing.T) {
	if _, err := decodeTape(append([]byte("CMP1"), 's', 0x00)); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec error, got %v", err)
	}
	if _, err := decodeTape(append([]byte("CMP1"), 'g', 0x01, 0x02)); !errors.Is(err, ErrCorruptCompression) {
		t.Fatalf("expected corrupt compression error, got %v", err)
	}
	if _, err := encodeTape("zstd", 0, []byte("x")); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected unsupported codec on encode, got %v", err)
	}
}

func TestShapingStoreReadsUncompressedTapes(t *testing.T) {
	ctx := context.Background()
	base := newMemoryStore()
	if err := base.Save(ctx, "legacy", []byte("raw tape")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	store := newShapingStore(base, CompressionGzip, 0)
	body, ok, err := store.Load(ctx, "legacy")
	if err != nil || !ok || string(body) != "raw tape" {
		t.Fatalf("expected uncompressed tape readable: ok=%v err=%v body=%q", ok, err, body)
	}
	if newShapingStore(base, CompressionNone, 0) != base {
		t.Fatalf("expected identity without shaping")
	}
}

func TestShapingStoreEnforcesMaxTapeBytes(t *testing.T) {
	store := NewMemoryStore(context.Background(), WithMaxTapeBytes(8))
	if err := store.Save(context.Background(), "k", []byte("0123456789")); !errors.Is(err, ErrTapeTooLarge) {
		t.Fatalf("expected ErrTapeTooLarge, got %v", err)
	}
}
