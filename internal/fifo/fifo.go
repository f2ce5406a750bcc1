package fifo

// Circular Fifo of fixed capacity, used for the hardware receive FIFOs
type Fifo[T any] struct {
	buffer   []T
	writePos int
	readPos  int
	occupied int
}

func NewFifo[T any](size uint16) *Fifo[T] {
	f := &Fifo[T]{
		buffer:   make([]T, size),
		writePos: 0,
		readPos:  0,
		occupied: 0,
	}
	return f
}

func (f *Fifo[T]) Reset() {
	var zero T
	for i := range f.buffer {
		f.buffer[i] = zero
	}
	f.readPos = 0
	f.writePos = 0
	f.occupied = 0
}

func (f *Fifo[T]) GetSpace() int {
	return len(f.buffer) - f.occupied
}

func (f *Fifo[T]) GetOccupied() int {
	return f.occupied
}

func (f *Fifo[T]) Cap() int {
	return len(f.buffer)
}

func (f *Fifo[T]) IsFull() bool {
	return f.occupied == len(f.buffer)
}

func (f *Fifo[T]) IsEmpty() bool {
	return f.occupied == 0
}

// Write data to fifo, returns false if there is no space left
func (f *Fifo[T]) Write(element T) bool {
	if f.IsFull() {
		return false
	}
	f.buffer[f.writePos] = element
	f.writePos++
	if f.writePos == len(f.buffer) {
		f.writePos = 0
	}
	f.occupied++
	return true
}

// Read oldest element from fifo, returns false if fifo is empty
func (f *Fifo[T]) Read() (T, bool) {
	var zero T
	if f.IsEmpty() {
		return zero, false
	}
	element := f.buffer[f.readPos]
	f.buffer[f.readPos] = zero
	f.readPos++
	if f.readPos == len(f.buffer) {
		f.readPos = 0
	}
	f.occupied--
	return element, true
}

// Peek oldest element without releasing it
func (f *Fifo[T]) Peek() (T, bool) {
	var zero T
	if f.IsEmpty() {
		return zero, false
	}
	return f.buffer[f.readPos], true
}
