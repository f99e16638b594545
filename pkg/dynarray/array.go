// Package dynarray provides a resizable array of strings that owns copies of
// every element it stores.
package dynarray

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Options configures a new Array.
type Options struct {
	// Logger receives debug events for growth and removal.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Tracker, if set, records element copies and buffers acquired and released.
	Tracker *Tracker
}

// Array is an ordered, index-addressable container of strings backed by a
// buffer that doubles when full. It is not safe for concurrent use.
type Array struct {
	slots     []string // len(slots) is the capacity
	count     int
	destroyed bool

	logger  *slog.Logger
	tracker *Tracker
}

// New creates an empty array with room for capacity elements.
func New(capacity int) (*Array, error) {
	return NewWithOptions(capacity, Options{})
}

// NewWithOptions creates an empty array with room for capacity elements.
func NewWithOptions(capacity int, opts Options) (*Array, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("create with capacity %d: %w", capacity, ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Array{
		logger:  logger,
		tracker: opts.Tracker,
	}
	a.slots = a.allocBuffer(capacity)
	return a, nil
}

// Len returns the number of elements.
func (a *Array) Len() int {
	a.mustBeLive()
	return a.count
}

// Cap returns the number of allocated slots.
func (a *Array) Cap() int {
	a.mustBeLive()
	return len(a.slots)
}

// Read returns the element at index without removing it.
func (a *Array) Read(index int) (string, error) {
	a.mustBeLive()
	if index < 0 || index >= a.count {
		return "", fmt.Errorf("read index %d (count %d): %w", index, a.count, ErrIndexOutOfRange)
	}
	return a.slots[index], nil
}

// Insert stores a copy of element at index, shifting the elements at
// [index, Len()) one position to the right. Inserting at Len() appends.
func (a *Array) Insert(element string, index int) error {
	a.mustBeLive()
	if index < 0 || index > a.count {
		return fmt.Errorf("insert at index %d (count %d): %w", index, a.count, ErrIndexOutOfRange)
	}
	if a.count == len(a.slots) {
		a.grow()
	}
	// Move from the tail so nothing is overwritten before it is moved.
	for i := a.count - 1; i >= index; i-- {
		a.slots[i+1] = a.slots[i]
	}
	a.slots[index] = a.own(element)
	a.count++
	return nil
}

// Append stores a copy of element after the last element.
func (a *Array) Append(element string) {
	a.mustBeLive()
	if a.count == len(a.slots) {
		a.grow()
	}
	a.slots[a.count] = a.own(element)
	a.count++
}

// AppendBytes appends a copy of b as a string. Later writes to b do not
// affect the stored element.
func (a *Array) AppendBytes(b []byte) {
	a.Append(string(b))
}

// Remove deletes the first element equal to element and shifts the
// following elements one position to the left.
func (a *Array) Remove(element string) error {
	a.mustBeLive()
	found := -1
	for i := range a.count {
		if a.slots[i] == element {
			found = i
			break
		}
	}
	if found < 0 {
		return fmt.Errorf("remove %q: %w", element, ErrNotFound)
	}

	a.release(found)
	copy(a.slots[found:a.count-1], a.slots[found+1:a.count])
	a.count--
	a.slots[a.count] = ""
	a.logger.Debug("removed element", "index", found, "count", a.count)
	return nil
}

// Elements returns the live elements in order. The returned slice is a copy.
func (a *Array) Elements() []string {
	a.mustBeLive()
	out := make([]string, a.count)
	copy(out, a.slots[:a.count])
	return out
}

// Destroy releases every element and then the backing buffer. Calling
// Destroy again is a no-op; any other method panics after Destroy.
func (a *Array) Destroy() {
	if a.destroyed {
		return
	}
	for i := range a.count {
		a.release(i)
	}
	a.releaseBuffer()
	a.slots = nil
	a.count = 0
	a.destroyed = true
}

// String renders the array as "Capacity: c, Count: n, [e0,e1,...]".
func (a *Array) String() string {
	if a.destroyed {
		return "Capacity: 0, Count: 0, [] (destroyed)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Capacity: %d, Count: %d, [", len(a.slots), a.count)
	for i := range a.count {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.slots[i])
	}
	b.WriteByte(']')
	return b.String()
}

// grow doubles the capacity. Element copies are moved, not duplicated, so
// only the old buffer is released.
func (a *Array) grow() {
	old := len(a.slots)
	if old > math.MaxInt/2 {
		panic(fmt.Errorf("grow capacity %d: %w", old, ErrAllocationFailure))
	}
	next := a.allocBuffer(old * 2)
	copy(next, a.slots[:a.count])
	a.releaseBuffer()
	a.slots = next
	a.logger.Debug("resized array", "from", old, "to", len(a.slots), "count", a.count)
}

// own returns a copy of s that shares no memory with the caller's value.
func (a *Array) own(s string) string {
	a.tracker.allocElement()
	return strings.Clone(s)
}

func (a *Array) release(i int) {
	a.slots[i] = ""
	a.tracker.releaseElement()
}

func (a *Array) allocBuffer(capacity int) []string {
	a.tracker.allocBuffer()
	return make([]string, capacity)
}

func (a *Array) releaseBuffer() {
	clear(a.slots)
	a.tracker.releaseBuffer()
}

func (a *Array) mustBeLive() {
	if a.destroyed {
		panic("dynarray: use of destroyed array")
	}
}
