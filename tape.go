package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current tape schema version - increment when the tape layout changes.
const tapeVersion = 1

// ErrCorruptTape is returned when a persisted tape cannot be decoded.
var ErrCorruptTape = errors.New("recorder: corrupt tape")

// tape is the persisted form of a recorder's records for one connection.
type tape struct {
	Version    int          `msgpack:"v"`
	Connection string       `msgpack:"c"`
	Session    string       `msgpack:"s"`
	RecordedAt time.Time    `msgpack:"t"`
	Records    []tapeRecord `msgpack:"r"`
}

type tapeRecord struct {
	Function string             `msgpack:"f"`
	Args     []byte             `msgpack:"a"`
	Kwargs   []byte             `msgpack:"k"`
	Result   msgpack.RawMessage `msgpack:"res"`
}

func (r tapeRecord) key() RecordKey {
	return RecordKey{Function: r.Function, Args: string(r.Args), Kwargs: string(r.Kwargs)}
}

func marshalTape(t tape) ([]byte, error) {
	t.Version = tapeVersion
	body, err := msgpack.Marshal(&t)
	if err != nil {
		return nil, fmt.Errorf("encode tape: %w", err)
	}
	return body, nil
}

func unmarshalTape(body []byte) (tape, error) {
	var t tape
	if err := msgpack.Unmarshal(body, &t); err != nil {
		return tape{}, fmt.Errorf("%w: %v", ErrCorruptTape, err)
	}
	if t.Version != tapeVersion {
		return tape{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptTape, t.Version)
	}
	return t, nil
}
