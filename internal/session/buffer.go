package session

import "sync"

// AudioBuffer accumulates raw PCM16 audio between conversation turns.
// Append grows the buffer, PeekSize reports it without consuming, and
// Drain hands the accumulated bytes over for processing and empties it.
//
// All methods are safe for concurrent use.
type AudioBuffer struct {
	mu  sync.Mutex
	buf []byte
}

// Append adds pcm to the buffer and returns the new buffered size.
func (b *AudioBuffer) Append(pcm []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, pcm...)
	return len(b.buf)
}

// PeekSize returns the buffered byte count without consuming anything.
func (b *AudioBuffer) PeekSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Drain returns the buffered audio and resets the buffer. The returned
// slice is owned by the caller.
func (b *AudioBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	b.buf = nil
	return out
}

// Reset discards any buffered audio.
func (b *AudioBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = nil
}
