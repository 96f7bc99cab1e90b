package client

import "time"

// Backoff produces exponentially growing reconnect delays, starting at
// Min and doubling up to Max. The zero value is not usable; call
// NewBackoff.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	next time.Duration
}

func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if max < min {
		max = 30 * time.Second
	}
	return &Backoff{Min: min, Max: max, next: min}
}

// Next returns the delay to wait before the upcoming attempt and
// advances the schedule.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// Reset returns the schedule to its starting delay. Call it after a
// successful connection.
func (b *Backoff) Reset() {
	b.next = b.Min
}
