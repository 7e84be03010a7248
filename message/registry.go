package message

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
)

type entry struct {
	new func() Message
	typ reflect.Type
}

// Registry knows how to construct every message type a process can receive.
// It is safe for concurrent use.
type Registry struct {
	mut     sync.RWMutex
	entries map[ID]entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[ID]entry),
	}
}

// Register adds message constructors. Registering the same type again is a
// no-op, while a different type claiming a taken id fails with ErrDuplicateID.
// Either all constructors are added or none.
func (r *Registry) Register(ctors ...func() Message) error {
	r.mut.Lock()
	defer r.mut.Unlock()

	pending := make(map[ID]entry, len(ctors))

	for i, ctor := range ctors {
		m, err := Construct(ctor)
		if err != nil {
			return fmt.Errorf("constructor %d: %w", i, err)
		}

		id, typ := m.MessageID(), reflect.TypeOf(m)

		for _, existing := range []map[ID]entry{r.entries, pending} {
			if e, ok := existing[id]; ok && e.typ != typ {
				return fmt.Errorf("%w: %s is taken by %s, cannot register %s", ErrDuplicateID, id, e.typ, typ)
			}
		}

		pending[id] = entry{new: ctor, typ: typ}
	}

	for id, e := range pending {
		r.entries[id] = e
	}

	return nil
}

// Construct calls ctor and checks that it produced a usable message.
func Construct(ctor func() Message) (Message, error) {
	if ctor == nil {
		return nil, ErrNoMessage
	}

	m := ctor()
	if m == nil {
		return nil, ErrNoMessage
	}

	if v := reflect.ValueOf(m); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, fmt.Errorf("%w: nil %T", ErrNoMessage, m)
	}

	return m, nil
}

// Has reports whether id is known.
func (r *Registry) Has(id ID) bool {
	r.mut.RLock()
	defer r.mut.RUnlock()

	_, ok := r.entries[id]

	return ok
}

// New returns a fresh zero message for id.
func (r *Registry) New(id ID) (Message, error) {
	r.mut.RLock()
	e, ok := r.entries[id]
	r.mut.RUnlock()

	if !ok {
		return nil, &UnknownMessageError{ID: id}
	}

	return e.new(), nil
}

// Unmarshal decodes a frame produced by Marshal. An unregistered id yields an
// *UnknownMessageError; a payload that does not match the message layout,
// including trailing bytes, yields ErrMalformed.
func (r *Registry) Unmarshal(frame []byte) (Message, error) {
	br := bytes.NewReader(frame)
	rd := NewReader(br)

	rawID, err := rd.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header: %v", ErrMalformed, err)
	}

	m, err := r.New(ID(rawID))
	if err != nil {
		return nil, err
	}

	if err := m.Decode(rd); err != nil {
		return nil, fmt.Errorf("%w: decode %T: %v", ErrMalformed, m, err)
	}

	if br.Len() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %T", ErrMalformed, br.Len(), m)
	}

	return m, nil
}
