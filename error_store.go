package recorder

import (
	"context"

	"github.com/goforj/recorder/recordercore"
)

// errorStore is returned when a driver fails to initialize; it preserves the driver
// identity while surfacing the construction error on every call.
type errorStore struct {
	driver recordercore.Driver
	err    error
}

func (e *errorStore) Driver() recordercore.Driver                        { return e.driver }
func (e *errorStore) Load(context.Context, string) ([]byte, bool, error) { return nil, false, e.err }
func (e *errorStore) Save(context.Context, string, []byte) error         { return e.err }
func (e *errorStore) Delete(context.Context, string) error               { return e.err }
func (e *errorStore) Flush(context.Context) error                        { return e.err }
