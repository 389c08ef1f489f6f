package device

import (
	"fmt"
	"sync"

	"github.com/LynnColeArt/convbench/config"
)

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead across benchmark iterations. In-use and cached
// free blocks together never exceed the capacity; cached blocks are
// released, oldest first, to make room for a new allocation.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[*allocation]struct{}
	freeList   []*allocation
	capacity   int64
	totalAlloc int64
	freeBytes  int64
	peakAlloc  int64
}

type allocation struct {
	data []float32
	size int // bytes, aligned
	used bool
}

// DevicePtr refers to a block of device memory. The zero value is a nil
// pointer; use Float32 to access the contents.
type DevicePtr struct {
	alloc *allocation
	size  int
}

// NewMemoryPool creates a pool that refuses to hold more than capacity
// bytes at once. A capacity of zero means no limit.
func NewMemoryPool(capacity int64) *MemoryPool {
	return &MemoryPool{
		allocated: make(map[*allocation]struct{}),
		capacity:  capacity,
	}
}

// Malloc allocates device memory of the specified size in bytes.
// The contents of reused blocks are unspecified.
//
// Example:
//
//	ptr, err := ctx.Malloc(1024 * 4) // Allocate 1024 float32s
//	if err != nil {
//		return err
//	}
//	defer ctx.Free(ptr)
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc.
// It is safe to call Free with a zero DevicePtr.
// The memory is retained in the pool for future allocations.
func (ctx *Context) Free(ptr DevicePtr) error {
	if ptr.IsNil() {
		return nil
	}
	return ctx.memory.Free(ptr)
}

// Allocate allocates memory from the pool
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Round up to alignment
	const alignment = config.MemoryAlignment
	alignedSize := (size + alignment - 1) &^ (alignment - 1)

	// Best fit from the free list
	best := -1
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize && (best < 0 || alloc.size < mp.freeList[best].size) {
			best = i
		}
	}
	if best >= 0 {
		alloc := mp.freeList[best]
		mp.freeList = append(mp.freeList[:best], mp.freeList[best+1:]...)
		mp.freeBytes -= int64(alloc.size)
		alloc.used = true
		mp.track(int64(alloc.size))
		return DevicePtr{alloc: alloc, size: size}, nil
	}

	if mp.capacity > 0 {
		for len(mp.freeList) > 0 && mp.totalAlloc+mp.freeBytes+int64(alignedSize) > mp.capacity {
			mp.release(0)
		}
	}
	if mp.capacity > 0 && mp.totalAlloc+int64(alignedSize) > mp.capacity {
		return DevicePtr{}, NewMemoryError("Malloc",
			fmt.Sprintf("cannot allocate %d bytes: %d of %d in use", alignedSize, mp.totalAlloc, mp.capacity),
			ErrOutOfMemory)
	}

	alloc := &allocation{
		data: make([]float32, alignedSize/4),
		size: alignedSize,
		used: true,
	}
	mp.allocated[alloc] = struct{}{}
	mp.track(int64(alignedSize))

	return DevicePtr{alloc: alloc, size: size}, nil
}

func (mp *MemoryPool) track(n int64) {
	mp.totalAlloc += n
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}
}

// Free returns memory to the pool
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc := ptr.alloc
	if _, ok := mp.allocated[alloc]; !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	mp.freeBytes += int64(alloc.size)

	return nil
}

// release drops the free block at index i from the pool.
func (mp *MemoryPool) release(i int) {
	alloc := mp.freeList[i]
	mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
	delete(mp.allocated, alloc)
	mp.freeBytes -= int64(alloc.size)
}

// Trim releases every cached free block and returns the bytes released.
func (mp *MemoryPool) Trim() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	released := mp.freeBytes
	for len(mp.freeList) > 0 {
		mp.release(len(mp.freeList) - 1)
	}
	return released
}

// Cached returns the bytes held in free blocks awaiting reuse.
func (mp *MemoryPool) Cached() int64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.freeBytes
}

// GetStats returns memory pool statistics
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Float32 returns a float32 slice view of the device memory.
// The slice can be used directly for reading and writing data.
func (d DevicePtr) Float32() []float32 {
	if d.alloc == nil {
		return nil
	}
	return d.alloc.data[: d.size/4 : d.size/4]
}

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return d.size
}

// IsNil reports whether d refers to no memory.
func (d DevicePtr) IsNil() bool {
	return d.alloc == nil
}
