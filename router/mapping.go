package router

import (
	"reflect"
)

// TypeOf returns the pointer type *T. Messages and handler containers are
// always keyed by their pointer type.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil))
}

// Mapping binds a single message type to a method of a handler container.
type Mapping struct {
	name       string
	owner      reflect.Type
	message    reflect.Type
	param      reflect.Type
	fn         reflect.Type
	newMessage func() any
	call       func(owner, ctx any)
}

// Map declares that messages of type *T are handled by fn, a method of the
// container type O. The name must be an exported method of *O with the same
// signature as fn; Register checks it against the method set. Method
// expressions fit naturally:
//
//	router.Map[Lobby, EnterRoom]("OnEnterRoom", (*Lobby).OnEnterRoom)
func Map[O, T, P any](name string, fn func(*O, P)) Mapping {
	var call func(owner, ctx any)

	if fn != nil {
		call = func(owner, ctx any) {
			p, _ := ctx.(P)
			fn(owner.(*O), p)
		}
	}

	return Mapping{
		name:       name,
		owner:      TypeOf[O](),
		message:    TypeOf[T](),
		param:      reflect.TypeOf((*P)(nil)).Elem(),
		fn:         reflect.TypeOf(fn),
		newMessage: func() any { return new(T) },
		call:       call,
	}
}

// Container groups the mappings declared by one handler type. The router keeps
// exactly one instance of each container type.
type Container struct {
	typ      reflect.Type
	newOwner func() any
	mappings []Mapping
}

func NewContainer[O any](mappings ...Mapping) Container {
	return Container{
		typ:      TypeOf[O](),
		newOwner: func() any { return new(O) },
		mappings: mappings,
	}
}

// Type returns the container type, *O.
func (c Container) Type() reflect.Type {
	return c.typ
}

// InstanceFactory creates the owner instance for a container type. It must
// return a value of exactly that type.
type InstanceFactory func(containerType reflect.Type) (any, error)

// Invoker is a handler call that is ready to run. Running it is up to the
// caller: inline, on a worker pool, or not at all.
type Invoker interface {
	Invoke()
}

type invocation struct {
	handler string
	call    func(owner, ctx any)
	owner   any
	ctx     any
}

func (i *invocation) Invoke() {
	i.call(i.owner, i.ctx)
}

// String names the bound handler, e.g. "*lobby.Lobby.OnEnterRoom".
func (i *invocation) String() string {
	return i.handler
}
