// Package router maps decoded messages to handler methods by the message's
// runtime type and hands back deferred invocations.
//
// Bindings are declared as plain function values grouped into containers and
// registered once at process start:
//
//	r := router.New[message.Message, *Request](logger)
//	err := r.Register(router.NewContainer[Lobby](
//		router.Map[Lobby, EnterRoom]("OnEnterRoom", (*Lobby).OnEnterRoom),
//	), nil)
//
// Dispatching never runs the handler itself; the consumer passed to Request
// decides when and where to call Invoke.
package router

import (
	"fmt"
	"go/token"
	"reflect"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gamemesh/internal/generic"
)

type binding struct {
	container  reflect.Type
	handler    string
	newMessage func() any
	call       func(owner, ctx any)
}

// Router is a table of message type → handler bindings. M is the message base
// type and C is the context type handlers receive. Registration and dispatch
// may run concurrently.
type Router[M any, C any] struct {
	mut       sync.Mutex // serializes writers
	msgType   reflect.Type
	ctxType   reflect.Type
	bindings  generic.SyncMap[reflect.Type, *binding]
	instances generic.SyncMap[reflect.Type, any]
	logger    kitlog.Logger
}

func New[M any, C any](logger kitlog.Logger) *Router[M, C] {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	return &Router[M, C]{
		msgType: reflect.TypeOf((*M)(nil)).Elem(),
		ctxType: reflect.TypeOf((*C)(nil)).Elem(),
		logger:  logger,
	}
}

func (r *Router[M, C]) validate(c Container, m Mapping) error {
	handler := fmt.Sprintf("%s.%s", c.typ, m.name)
	method, isMethod := m.owner.MethodByName(m.name)

	switch {
	case m.owner != c.typ:
		return fmt.Errorf("%w: %s is declared on %s", ErrIncompatibleOwner, handler, m.owner)
	case m.name == "" || !token.IsExported(m.name):
		return fmt.Errorf("%w: %s must be exported", ErrNotCallable, handler)
	case m.call == nil:
		return fmt.Errorf("%w: %s has no function", ErrNotCallable, handler)
	case !isMethod || method.Type != m.fn:
		return fmt.Errorf("%w: %s is not a method with signature %s", ErrNotCallable, handler, m.fn)
	case !m.message.AssignableTo(r.msgType):
		return fmt.Errorf("%w: %s handles %s which is not a %s", ErrIncompatibleMessage, handler, m.message, r.msgType)
	case !r.ctxType.AssignableTo(m.param):
		return fmt.Errorf("%w: %s takes %s, cannot pass %s", ErrIncompatibleContext, handler, m.param, r.ctxType)
	}

	return nil
}

func (r *Router[M, C]) newOwner(c Container, factory InstanceFactory) (any, error) {
	if factory == nil {
		return c.newOwner(), nil
	}

	owner, err := factory(c.typ)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", c.typ, err)
	}

	if reflect.TypeOf(owner) != c.typ {
		return nil, fmt.Errorf("%w: factory returned %T for %s", ErrIncompatibleOwner, owner, c.typ)
	}

	return owner, nil
}

// Register adds all bindings declared by the container. The optional factory
// creates the owner instance; without it, a zero *O is used. The instance is
// created once per container type, on its first successful registration.
//
// Registration is all-or-nothing: if any mapping is invalid or its message
// type is already bound, nothing is added and existing bindings stay intact.
func (r *Router[M, C]) Register(c Container, factory InstanceFactory) error {
	if c.typ == nil {
		return fmt.Errorf("%w: empty container", ErrIncompatibleOwner)
	}

	if len(c.mappings) == 0 {
		return nil
	}

	seen := make(map[reflect.Type]string, len(c.mappings))

	for _, m := range c.mappings {
		if err := r.validate(c, m); err != nil {
			return err
		}

		if other, ok := seen[m.message]; ok {
			return fmt.Errorf("%w: %s is mapped by both %s and %s", ErrDuplicateRequest, m.message, other, m.name)
		}

		seen[m.message] = m.name
	}

	r.mut.Lock()
	defer r.mut.Unlock()

	for _, m := range c.mappings {
		if b, ok := r.bindings.Load(m.message); ok {
			return fmt.Errorf("%w: %s is already handled by %s", ErrDuplicateRequest, m.message, b.handler)
		}
	}

	if _, ok := r.instances.Load(c.typ); !ok {
		owner, err := r.newOwner(c, factory)
		if err != nil {
			return err
		}

		r.instances.Store(c.typ, owner)
	}

	for _, m := range c.mappings {
		b := &binding{
			container:  c.typ,
			handler:    fmt.Sprintf("%s.%s", c.typ, m.name),
			newMessage: m.newMessage,
			call:       m.call,
		}

		r.bindings.Store(m.message, b)

		level.Debug(r.logger).Log("msg", "request registered", "type", m.message, "handler", b.handler)
	}

	return nil
}

// ReplaceInstance swaps the owner instance used by future invocations of the
// container's bindings. Invokers created earlier keep the old instance.
func (r *Router[M, C]) ReplaceInstance(containerType reflect.Type, owner any) error {
	if owner == nil || reflect.TypeOf(owner) != containerType {
		return fmt.Errorf("%w: %T is not %s", ErrIncompatibleOwner, owner, containerType)
	}

	r.mut.Lock()
	defer r.mut.Unlock()

	if _, ok := r.instances.Load(containerType); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContainer, containerType)
	}

	r.instances.Store(containerType, owner)

	return nil
}

// Request looks up the binding for the runtime type of msg. When there is
// none, it logs and returns false without calling consume. Otherwise it builds
// the handler context with newContext and passes a ready invocation to
// consume.
func (r *Router[M, C]) Request(msg M, newContext func(M) C, consume func(Invoker)) bool {
	if any(msg) == nil {
		level.Warn(r.logger).Log("msg", "nil request dropped")
		return false
	}

	typ := reflect.TypeOf(msg)

	b, ok := r.bindings.Load(typ)
	if !ok {
		level.Warn(r.logger).Log("msg", "no handler for request", "type", typ)
		return false
	}

	owner, _ := r.instances.Load(b.container)

	consume(&invocation{
		handler: b.handler,
		call:    b.call,
		owner:   owner,
		ctx:     newContext(msg),
	})

	return true
}

// RequestInstance returns a new zero message of the given type, if the type
// is bound.
func (r *Router[M, C]) RequestInstance(messageType reflect.Type) (M, bool) {
	var zero M

	b, ok := r.bindings.Load(messageType)
	if !ok {
		return zero, false
	}

	return b.newMessage().(M), true
}

// ForEachRequestType calls f for every bound message type, in no particular order.
func (r *Router[M, C]) ForEachRequestType(f func(messageType reflect.Type)) {
	r.bindings.Range(func(key reflect.Type, _ *binding) bool {
		f(key)
		return true
	})
}

func (r *Router[M, C]) Len() int {
	return r.bindings.Len()
}
