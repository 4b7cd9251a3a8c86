package state

// Derived is a read-only cell recomputed whenever an upstream cell changes.
type Derived[T any] struct {
	cell  *Cell[T]
	stops []func()
}

// Get returns the last computed value.
func (d *Derived[T]) Get() T {
	return d.cell.Get()
}

// Subscribe registers fn for recomputations.
func (d *Derived[T]) Subscribe(fn func(T)) func() {
	return d.cell.Subscribe(fn)
}

// Close detaches the derived cell from its upstream cells.
func (d *Derived[T]) Close() {
	for _, stop := range d.stops {
		stop()
	}
	d.stops = nil
}

// Map derives a cell from a single upstream cell.
func Map[A, R any](a Readable[A], fn func(A) R) *Derived[R] {
	d := &Derived[R]{cell: NewCell(fn(a.Get()))}
	d.stops = append(d.stops, a.Subscribe(func(v A) {
		d.cell.Set(fn(v))
	}))
	return d
}

// Derive2 derives a cell from two upstream cells. It recomputes from the
// latest value of both whenever either emits.
func Derive2[A, B, R any](a Readable[A], b Readable[B], fn func(A, B) R) *Derived[R] {
	d := &Derived[R]{cell: NewCell(fn(a.Get(), b.Get()))}
	d.stops = append(d.stops,
		a.Subscribe(func(av A) { d.cell.Set(fn(av, b.Get())) }),
		b.Subscribe(func(bv B) { d.cell.Set(fn(a.Get(), bv)) }),
	)
	return d
}
