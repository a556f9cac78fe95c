package recorder

import (
	"context"

	"github.com/goforj/recorder/recordercore"
)

// shapingStore enforces tape shaping concerns (compression, size limits)
// transparently on top of any concrete Store implementation.
type shapingStore struct {
	inner recordercore.Store
	codec CompressionCodec
	max   int
}

func newShapingStore(inner recordercore.Store, codec CompressionCodec, max int) recordercore.Store {
	if (codec == CompressionNone || codec == "") && max <= 0 {
		return inner
	}
	return &shapingStore{inner: inner, codec: codec, max: max}
}

func (s *shapingStore) Driver() recordercore.Driver { return s.inner.Driver() }

func (s *shapingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Load(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	decoded, err := decodeTape(body)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (s *shapingStore) Save(ctx context.Context, key string, tape []byte) error {
	encoded, err := encodeTape(s.codec, s.max, tape)
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, key, encoded)
}

func (s *shapingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *shapingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
