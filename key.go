package recorder

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnkeyable is returned when call arguments cannot be encoded into a RecordKey:
// funcs, channels, unsafe pointers and structs with unexported fields.
var ErrUnkeyable = errors.New("recorder: argument cannot be used as a record key")

// Kwargs holds named call arguments.
type Kwargs map[string]any

// RecordKey identifies a recorded call. Args and Kwargs hold the canonical
// msgpack encoding of the arguments (map entries sorted, integers compacted), so
// two keys are equal exactly when the function name and the argument values
// are structurally equal. RecordKey is comparable and usable as a map key.
type RecordKey struct {
	Function string
	Args     string
	Kwargs   string
}

// NewRecordKey builds the key for a call of function with args and kwargs.
// A nil args slice and an empty one produce the same key; likewise for kwargs.
func NewRecordKey(function string, args []any, kwargs Kwargs) (RecordKey, error) {
	if args == nil {
		args = []any{}
	}
	encodedArgs, err := canonicalEncode(args)
	if err != nil {
		return RecordKey{}, fmt.Errorf("%w: %s args: %v", ErrUnkeyable, function, err)
	}
	named := map[string]any(kwargs)
	if named == nil {
		named = map[string]any{}
	}
	encodedKwargs, err := canonicalEncode(named)
	if err != nil {
		return RecordKey{}, fmt.Errorf("%w: %s kwargs: %v", ErrUnkeyable, function, err)
	}
	return RecordKey{
		Function: function,
		Args:     encodedArgs,
		Kwargs:   encodedKwargs,
	}, nil
}

// String returns a flat form of the key suitable for ordering and call coalescing.
// The function name is quoted so that no name can run into the encoded arguments.
func (k RecordKey) String() string {
	return strconv.Quote(k.Function) + k.Args + k.Kwargs
}

// maxKeyDepth bounds nesting so that cyclic pointers fail instead of recursing forever.
const maxKeyDepth = 64

var (
	customEncoderType   = reflect.TypeOf((*msgpack.CustomEncoder)(nil)).Elem()
	marshalerType       = reflect.TypeOf((*msgpack.Marshaler)(nil)).Elem()
	binaryMarshalerType = reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// keyEncoder writes msgpack in a canonical form: map entries and struct
// fields are ordered by their encoded keys, and integers are compacted.
type keyEncoder struct {
	buf bytes.Buffer
	enc *msgpack.Encoder
}

func newKeyEncoder() *keyEncoder {
	k := &keyEncoder{}
	k.enc = msgpack.NewEncoder(&k.buf)
	k.enc.UseCompactInts(true)
	return k
}

func canonicalEncode(v any) (string, error) {
	k := newKeyEncoder()
	if err := k.encode(reflect.ValueOf(v), 0); err != nil {
		return "", err
	}
	return k.buf.String(), nil
}

func canonicalBytes(v reflect.Value, depth int) ([]byte, error) {
	k := newKeyEncoder()
	if err := k.encode(v, depth); err != nil {
		return nil, err
	}
	return k.buf.Bytes(), nil
}

func (k *keyEncoder) encode(v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return errors.New("value nested too deeply")
	}
	if !v.IsValid() {
		return k.enc.EncodeNil()
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return k.enc.EncodeNil()
		}
	}
	if ok, err := k.encodeOwn(v); ok {
		return err
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		return k.encode(v.Elem(), depth+1)
	case reflect.Bool:
		return k.enc.EncodeBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return k.enc.EncodeInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return k.enc.EncodeUint(v.Uint())
	case reflect.Float32:
		return k.enc.EncodeFloat32(float32(v.Float()))
	case reflect.Float64:
		return k.enc.EncodeFloat64(v.Float())
	case reflect.String:
		return k.enc.EncodeString(v.String())
	case reflect.Slice:
		if v.IsNil() {
			return k.enc.EncodeNil()
		}
		return k.encodeList(v, depth)
	case reflect.Array:
		return k.encodeList(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return k.enc.EncodeNil()
		}
		return k.encodeMap(v, depth)
	case reflect.Struct:
		return k.encodeStruct(v, depth)
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
}

// encodeOwn hands values whose type defines its own encoding (time.Time,
// msgpack.CustomEncoder and the like) to msgpack.
func (k *keyEncoder) encodeOwn(v reflect.Value) (bool, error) {
	typ := v.Type()
	if typ.Kind() == reflect.Interface || !v.CanInterface() {
		return false, nil
	}
	if implementsAny(typ) {
		return true, k.enc.Encode(v.Interface())
	}
	if typ.Kind() != reflect.Pointer && implementsAny(reflect.PointerTo(typ)) {
		ptr := reflect.New(typ)
		ptr.Elem().Set(v)
		return true, k.enc.Encode(ptr.Interface())
	}
	return false, nil
}

func implementsAny(typ reflect.Type) bool {
	return typ.Implements(customEncoderType) ||
		typ.Implements(marshalerType) ||
		typ.Implements(binaryMarshalerType) ||
		typ.Implements(textMarshalerType)
}

func (k *keyEncoder) encodeList(v reflect.Value, depth int) error {
	n := v.Len()
	if v.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, n)
		for i := 0; i < n; i++ {
			b[i] = byte(v.Index(i).Uint())
		}
		return k.enc.EncodeBytes(b)
	}
	if err := k.enc.EncodeArrayLen(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := k.encode(v.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

type keyEntry struct {
	key, value []byte
}

func (k *keyEncoder) encodeMap(v reflect.Value, depth int) error {
	entries := make([]keyEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := canonicalBytes(iter.Key(), depth+1)
		if err != nil {
			return err
		}
		value, err := canonicalBytes(iter.Value(), depth+1)
		if err != nil {
			return err
		}
		entries = append(entries, keyEntry{key: key, value: value})
	}
	return k.writeEntries(entries)
}

// encodeStruct writes exported fields as a map keyed by field name. Structs
// with unexported fields are refused.
func (k *keyEncoder) encodeStruct(v reflect.Value, depth int) error {
	typ := v.Type()
	entries := make([]keyEntry, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("msgpack"), ",")
		if name == "-" {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("%s has unexported field %s", typ, field.Name)
		}
		if name == "" {
			name = field.Name
		}
		key, err := canonicalBytes(reflect.ValueOf(name), depth+1)
		if err != nil {
			return err
		}
		value, err := canonicalBytes(v.Field(i), depth+1)
		if err != nil {
			return err
		}
		entries = append(entries, keyEntry{key: key, value: value})
	}
	return k.writeEntries(entries)
}

func (k *keyEncoder) writeEntries(entries []keyEntry) error {
	sort.Slice(entries, func(i, j int) bool {
		if c := bytes.Compare(entries[i].key, entries[j].key); c != 0 {
			return c < 0
		}
		return bytes.Compare(entries[i].value, entries[j].value) < 0
	})
	if err := k.enc.EncodeMapLen(len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		k.buf.Write(e.key)
		k.buf.Write(e.value)
	}
	return nil
}
