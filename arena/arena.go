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

import (
	"fmt"
	"unsafe"

	"github.com/botobag/graphqlext/failure"
	xunsafe "github.com/botobag/graphqlext/internal/unsafe"
)

// DefaultChunkSize is the default chunk size for new arenas (64 KiB).
const DefaultChunkSize = 1 << 16

// Config specifies options to create an Arena. The zero value is ready to use.
type Config struct {
	// (Optional) Size of each chunk requested from the Go heap. Allocations larger than the chunk
	// size get a dedicated chunk. Default is DefaultChunkSize.
	ChunkSize int

	// (Optional) Upper bound of the total chunk capacity in bytes. An allocation that would need more
	// fails with failure.ErrKindOutOfMemory. Default is 0 which means unlimited.
	Limit int

	// (Optional) Maximum number of frames that can be pushed above the root frame. PushFrame beyond
	// this fails with failure.ErrKindOutOfMemory. Default is 0 which means unlimited.
	MaxDepth int
}

// chunk is a single block of backing memory.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// mark captures the allocation position of an arena.
type mark struct {
	chunk  int     // index of the current chunk; -1 when no chunk is in use
	offset uintptr // offset within the current chunk
	inUse  int     // bytes in use
}

type frame struct {
	mark
	seq uint64
}

// Handle identifies a frame pushed onto an Arena. It becomes stale once the frame is popped (or any
// frame below it is popped) and can never become live again.
type Handle struct {
	depth int
	seq   uint64
}

// Depth returns the position of the frame in the stack. The root frame has depth 0.
func (h Handle) Depth() int {
	return h.depth
}

// Arena is a frame stack over a chunked bump allocator. Not safe for concurrent use.
type Arena struct {
	chunks []chunk

	// Index of the chunk being carved; -1 before the first allocation.
	current int

	chunkSize int
	limit     int
	maxDepth  int

	// Sum of the offsets of chunks up to current.
	inUse    int
	capacity int
	peak     int

	frames  []frame
	nextSeq uint64

	strict   bool
	released bool
}

// New creates an Arena with its root frame pushed. config may be nil.
func New(config *Config) *Arena {
	a := &Arena{
		current:   -1,
		chunkSize: DefaultChunkSize,
		strict:    strictFrameStack,
	}
	if config != nil {
		if config.ChunkSize > 0 {
			a.chunkSize = config.ChunkSize
		}
		if config.Limit > 0 {
			a.limit = config.Limit
		}
		if config.MaxDepth > 0 {
			a.maxDepth = config.MaxDepth
		}
	}
	a.pushFrame()
	return a
}

func (a *Arena) currentMark() mark {
	m := mark{
		chunk: a.current,
		inUse: a.inUse,
	}
	if a.current >= 0 {
		m.offset = a.chunks[a.current].offset
	}
	return m
}

func (a *Arena) pushFrame() Handle {
	a.nextSeq++
	a.frames = append(a.frames, frame{
		mark: a.currentMark(),
		seq:  a.nextSeq,
	})
	return Handle{
		depth: len(a.frames) - 1,
		seq:   a.nextSeq,
	}
}

func (a *Arena) useAfterRelease(op failure.Op) error {
	return failure.New("use after Release", op, failure.ErrKindInternal)
}

// PushFrame opens a new frame above the active one and makes it active.
func (a *Arena) PushFrame() (Handle, error) {
	const op = failure.Op("arena.PushFrame")
	if a.released {
		return Handle{}, a.useAfterRelease(op)
	}

	if a.maxDepth > 0 && a.Depth() >= a.maxDepth {
		return Handle{}, failure.New(
			fmt.Sprintf("frame stack is full (%d frames)", a.maxDepth), op, failure.ErrKindOutOfMemory)
	}

	return a.pushFrame(), nil
}

// PopFrame releases the active frame together with all memory allocated in it and restores the
// previous frame as active. Popping the root frame is reported as failure.ErrKindImbalancedFrameStack,
// unless the package was built with the "release" tag, in which case it does nothing.
func (a *Arena) PopFrame() error {
	const op = failure.Op("arena.PopFrame")
	if a.released {
		return a.useAfterRelease(op)
	}

	numFrames := len(a.frames)
	if numFrames <= 1 {
		if a.strict {
			return failure.New("no frame is active above the root frame", op,
				failure.ErrKindImbalancedFrameStack)
		}
		return nil
	}

	top := a.frames[numFrames-1]
	a.frames = a.frames[:numFrames-1]

	// Rewind. Chunks past the mark are kept as spare capacity for later frames.
	for i := top.chunk + 1; i <= a.current; i++ {
		a.chunks[i].offset = 0
	}
	if top.chunk >= 0 {
		a.chunks[top.chunk].offset = top.offset
	}
	a.current = top.chunk
	a.inUse = top.inUse

	return nil
}

// Allocate carves n bytes from the active frame. The returned memory may contain data from a frame
// that was popped earlier; use AllocateZeroed when that matters. Returns nil if n <= 0.
func (a *Arena) Allocate(n int) ([]byte, error) {
	const op = failure.Op("arena.Allocate")
	if a.released {
		return nil, a.useAfterRelease(op)
	}

	if n <= 0 {
		return nil, nil
	}

	// Fast path: the current chunk has room.
	if a.current >= 0 {
		c := &a.chunks[a.current]
		off := alignPtr(c.offset)
		if off+uintptr(n) <= uintptr(len(c.buf)) {
			return a.carve(c, off, n), nil
		}
	}

	// Slow path: move to a spare chunk or grow.
	if err := a.advance(n); err != nil {
		return nil, failure.New(fmt.Sprintf("cannot allocate %d bytes", n), op, err)
	}

	c := &a.chunks[a.current]
	return a.carve(c, 0, n), nil
}

// carve hands out n bytes at off in c, which must have room.
func (a *Arena) carve(c *chunk, off uintptr, n int) []byte {
	end := off + uintptr(n)
	a.inUse += int(end - c.offset)
	c.offset = end
	if a.inUse > a.peak {
		a.peak = a.inUse
	}
	return c.buf[off:end:end]
}

// advance makes a chunk with at least n free bytes current.
func (a *Arena) advance(n int) error {
	// Spare chunks beyond current are empty; skip the ones that are too small.
	for i := a.current + 1; i < len(a.chunks); i++ {
		if len(a.chunks[i].buf) >= n {
			a.current = i
			return nil
		}
	}

	size := a.chunkSize
	if n > size {
		size = n
	}

	if a.limit > 0 && a.capacity+size > a.limit {
		return failure.New(
			fmt.Sprintf("arena limit of %d bytes reached (capacity %d)", a.limit, a.capacity),
			failure.ErrKindOutOfMemory)
	}

	a.chunks = append(a.chunks, chunk{buf: make([]byte, size)})
	a.capacity += size
	a.current = len(a.chunks) - 1
	return nil
}

// AllocateZeroed is like Allocate but clears the returned memory.
func (a *Arena) AllocateZeroed(n int) ([]byte, error) {
	b, err := a.Allocate(n)
	if err != nil {
		return nil, err
	}
	clear(b)
	return b, nil
}

// CopyBytes copies b into the active frame.
func (a *Arena) CopyBytes(b []byte) ([]byte, error) {
	dst, err := a.Allocate(len(b))
	if err != nil {
		return nil, err
	}
	copy(dst, b)
	return dst, nil
}

// CopyString copies s into the active frame and returns a string backed by arena memory. The
// string is only valid until its frame is popped.
func (a *Arena) CopyString(s string) (string, error) {
	b, err := a.CopyBytes(xunsafe.Bytes(s))
	if err != nil {
		return "", err
	}
	return xunsafe.String(b), nil
}

// Top returns the handle of the active frame.
func (a *Arena) Top() Handle {
	if len(a.frames) == 0 {
		return Handle{depth: -1}
	}
	depth := len(a.frames) - 1
	return Handle{
		depth: depth,
		seq:   a.frames[depth].seq,
	}
}

// Live returns true if the frame identified by h is still on the stack.
func (a *Arena) Live(h Handle) bool {
	return h.depth >= 0 && h.depth < len(a.frames) && a.frames[h.depth].seq == h.seq
}

// Release drops all frames and chunks. Any subsequent allocation fails. Calling Release more than
// once is harmless.
func (a *Arena) Release() {
	a.chunks = nil
	a.frames = nil
	a.current = -1
	a.inUse = 0
	a.capacity = 0
	a.released = true
}

// Released returns true if Release has been called.
func (a *Arena) Released() bool {
	return a.released
}

// alignPtr aligns the offset up to pointer size alignment.
func alignPtr(off uintptr) uintptr {
	const align = unsafe.Sizeof(uintptr(0))
	mask := align - 1
	return (off + mask) & ^mask
}
