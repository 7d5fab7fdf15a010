// Package zack contains small building blocks for terminal user interfaces.
package zack

// Router is a stack of views. The bottom view is the root and is never removed.
type Router[T any] struct {
	stack []T
}

// NewRouter creates a Router with root as its only view.
func NewRouter[T any](root T) *Router[T] {
	return &Router[T]{stack: []T{root}}
}

// Peek returns the top view.
func (r *Router[T]) Peek() T {
	return r.stack[len(r.stack)-1]
}

func (r *Router[T]) Push(view T) {
	r.stack = append(r.stack, view)
}

// Pop removes the top view unless it is the root. It reports whether a view was removed.
func (r *Router[T]) Pop() bool {
	if len(r.stack) == 1 {
		return false
	}
	var zero T
	r.stack[len(r.stack)-1] = zero
	r.stack = r.stack[:len(r.stack)-1]
	return true
}

// Replace swaps the top view, which may be the root.
func (r *Router[T]) Replace(view T) {
	r.stack[len(r.stack)-1] = view
}

func (r *Router[T]) Len() int {
	return len(r.stack)
}

// Views returns the stack from the root to the top. Elements may be replaced
// in place, the length must not change.
func (r *Router[T]) Views() []T {
	return r.stack
}
