package recordercore

import "context"

// Store persists tapes addressed by connection identity.
type Store interface {
	Driver() Driver
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, tape []byte) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}
