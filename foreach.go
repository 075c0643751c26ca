package gochan

// ForEach implements spec.md §6's iteration helper: it receives from ch
// until the channel closes and is drained, invoking body on each value.
func ForEach[T any](ch Channel[T], body func(T)) {
	for {
		v, ok := ch.Receive()
		if !ok {
			return
		}
		body(v)
	}
}
