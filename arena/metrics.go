/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package arena

// SizeInUse returns the total number of bytes currently allocated in the arena, including padding
// inserted for alignment.
func (a *Arena) SizeInUse() int {
	return a.inUse
}

// Capacity returns the total capacity (in bytes) of all chunks held by the arena, including spare
// chunks left behind by popped frames.
func (a *Arena) Capacity() int {
	return a.capacity
}

// NumChunks returns the number of chunks currently held by the arena.
func (a *Arena) NumChunks() int {
	return len(a.chunks)
}

// Depth returns the number of frames pushed above the root frame.
func (a *Arena) Depth() int {
	if len(a.frames) == 0 {
		return 0
	}
	return len(a.frames) - 1
}

// Peak returns the highest SizeInUse observed since the arena was created.
func (a *Arena) Peak() int {
	return a.peak
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0). Returns 0.0 if the
// arena has no capacity.
func (a *Arena) Utilization() float64 {
	if a.capacity == 0 {
		return 0
	}
	return float64(a.inUse) / float64(a.capacity)
}

// Metrics contains statistical information about an arena.
type Metrics struct {
	SizeInUse   int     `json:"size_in_use"` // Bytes currently allocated
	Capacity    int     `json:"capacity"`    // Total capacity in bytes
	NumChunks   int     `json:"num_chunks"`  // Number of chunks
	Depth       int     `json:"depth"`       // Frames above the root frame
	Peak        int     `json:"peak"`        // Highest SizeInUse
	Utilization float64 `json:"utilization"` // Ratio of used to total capacity (0.0-1.0)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	return Metrics{
		SizeInUse:   a.SizeInUse(),
		Capacity:    a.Capacity(),
		NumChunks:   a.NumChunks(),
		Depth:       a.Depth(),
		Peak:        a.Peak(),
		Utilization: a.Utilization(),
	}
}
