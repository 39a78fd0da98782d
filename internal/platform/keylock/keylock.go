// Package keylock serializa secciones críticas por clave dentro del
// proceso. Las entradas se liberan cuando nadie las usa.
package keylock

import "sync"

type Map struct {
	mu sync.Mutex
	m  map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Map {
	return &Map{m: make(map[string]*entry)}
}

// Lock bloquea hasta obtener la clave. Una clave vacía no bloquea.
func (l *Map) Lock(key string) (unlock func()) {
	if key == "" {
		return func() {}
	}

	l.mu.Lock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{}
		l.m[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}

// Len devuelve las claves en uso.
func (l *Map) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
