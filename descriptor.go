package silo

import (
	"reflect"
	"sync"
)

// reflectDescCache is the default CompDescCache: it derives size and
// alignment from a registered Go type via reflect, the way
// delaneyj-arche's archetype.Init computes component layout
// (`c.Type.Size()`, `c.Type.Align()`) before padding to alignment.
type reflectDescCache struct {
	mu      sync.RWMutex
	byKey   map[uint64]CompDesc
	nextID  uint32
	nextBit uint32
}

// NewReflectDescCache returns an empty descriptor cache. NewWorld always
// installs one of these as the World's descriptor cache.
func NewReflectDescCache() *reflectDescCache {
	return &reflectDescCache{
		byKey:  make(map[uint64]CompDesc),
		nextID: 1, // id 0 is reserved for EntityBad
	}
}

// register assigns a fresh ComponentID to typ and records its derived
// properties. ctor/dtor may be nil. Every call assigns a new id; it does
// not check whether typ was registered before.
func (c *reflectDescCache) register(name string, typ reflect.Type, class ComponentClass, ctor CtorFn, dtor DtorFn) ComponentID {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := typ.Size()
	align := uintptr(typ.Align())
	if typ.Kind() == reflect.Struct && typ.NumField() == 0 {
		size = 0 // zero-sized marker component
	}

	id := NewEntity(c.nextID, 0)
	c.nextID++

	desc := CompDesc{
		ID:    id,
		Name:  name,
		Class: class,
		Properties: CompProperties{
			Size:         size,
			Align:        align,
			Destructible: ctor != nil || dtor != nil,
		},
		Ctor:     ctor,
		Dtor:     dtor,
		bitIndex: c.nextBit,
	}
	c.nextBit++
	c.byKey[id.Key()] = desc
	return id
}

func (c *reflectDescCache) CompDesc(id ComponentID) (CompDesc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byKey[id.Key()]
	return d, ok
}

func (c *reflectDescCache) mustDesc(id ComponentID) CompDesc {
	d, ok := c.CompDesc(id)
	assertf(ok, "descriptor cache: component %v never registered", id)
	return d
}
