package recordertest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goforj/recorder/recordercore"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "load returns a cloned tape" assertion.
	SkipCloneCheck bool
	// SkipFlush disables the flush assertion for drivers where it is expensive or unavailable.
	SkipFlush bool
}

// Store is the minimal contract required by RunStoreContract.
type Store = recordercore.Store

// RunStoreContract runs a backend-agnostic tape store contract suite.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ctx := context.Background()
	key := func(s string) string {
		return sanitize(caseName) + ":" + s
	}

	// Missing tape.
	if _, ok, err := store.Load(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected miss for unknown tape; ok=%v err=%v", ok, err)
	}

	// Save/Load round-trip with binary content.
	tape := []byte{0x81, 0xa1, 'v', 0x01, 0x00, '\r', '\n', 0xff}
	if err := store.Save(ctx, key("alpha"), tape); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	body, ok, err := store.Load(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else {
		if !ok || !bytes.Equal(body, tape) {
			t.Fatalf("unexpected load result: ok=%v body=%x", ok, body)
		}
		if !opts.SkipCloneCheck {
			body[0] = 'X'
			again, ok2, err2 := store.Load(ctx, key("alpha"))
			if err2 != nil || !ok2 || !bytes.Equal(again, tape) {
				t.Fatalf("expected stored tape unchanged, got ok=%v body=%x err=%v", ok2, again, err2)
			}
		}
	}

	// Overwrite replaces the whole tape.
	if err := store.Save(ctx, key("alpha"), []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	if !opts.NullSemantics {
		body, ok, err = store.Load(ctx, key("alpha"))
		if err != nil || !ok || string(body) != "second" {
			t.Fatalf("expected overwritten tape, got ok=%v body=%q err=%v", ok, string(body), err)
		}
	}

	// Delete, including an unknown key.
	if err := store.Delete(ctx, key("alpha")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, err := store.Load(ctx, key("alpha")); err != nil || ok {
		t.Fatalf("expected tape deleted; ok=%v err=%v", ok, err)
	}
	if err := store.Delete(ctx, key("never-saved")); err != nil {
		t.Fatalf("delete of missing tape failed: %v", err)
	}

	// Flush.
	if !opts.SkipFlush {
		if err := store.Save(ctx, key("flush"), []byte("x")); err != nil {
			t.Fatalf("save flush failed: %v", err)
		}
		if err := store.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
		if _, ok, err := store.Load(ctx, key("flush")); err != nil || ok {
			t.Fatalf("expected flush to clear tape; ok=%v err=%v", ok, err)
		}
	}
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
