// Package device provides the CPU compute device the convolution
// benchmarks run on. It mirrors the CUDA runtime model: a Context owns
// device memory and in-order Streams, work is submitted asynchronously,
// and Events recorded on a stream timestamp completed work.
//
// Example usage:
//
//	ctx, err := device.NewContext(0)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Destroy()
//
//	start, end := device.NewEvent(), device.NewEvent()
//	start.Record(ctx.Stream())
//	ctx.Stream().Submit(work)
//	end.Record(ctx.Stream())
//	ctx.Synchronize()
//	ms, _ := start.ElapsedTime(end)
package device

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Device represents a compute device. The only device is the host CPU
// with its cores and available memory.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Total available memory in bytes
	NumCores   int    // Number of CPU cores
	MaxThreads int    // Maximum concurrent threads
}

// String returns a short description used in tool output.
func (d *Device) String() string {
	return fmt.Sprintf("%s:%d %s", "cpu", d.ID, d.Name)
}

// Context represents an execution context on one device.
// It manages device memory and stream execution. A Context must be
// destroyed when no longer needed.
type Context struct {
	device        *Device
	memory        *MemoryPool
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	defaultStream *Stream
	destroyed     bool
}

// defaultSystemMemory is reported when the OS cannot be queried.
const defaultSystemMemory = 16 * 1024 * 1024 * 1024

var (
	cpuDevice *Device
	probeOnce sync.Once
)

func probe() *Device {
	probeOnce.Do(func() {
		cpuDevice = &Device{
			ID:         0,
			Name:       cpuName(),
			TotalMem:   systemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: runtime.NumCPU() * 2, // Hyperthreading
		}
	})
	return cpuDevice
}

// Count returns the number of available devices.
func Count() int {
	return 1
}

// Get returns the properties of the device with the given ID.
func Get(id int) (*Device, error) {
	if id < 0 || id >= Count() {
		return nil, ErrInvalidDevice
	}
	return probe(), nil
}

// NewContext creates an execution context on the device with the given ID.
func NewContext(id int) (*Context, error) {
	dev, err := Get(id)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		device:  dev,
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(int64(dev.TotalMem)),
	}
	ctx.defaultStream = ctx.CreateStream()
	return ctx, nil
}

// Device returns the device this context runs on.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Stream returns the default stream.
func (ctx *Context) Stream() *Stream {
	return ctx.defaultStream
}

// CreateStream creates a new execution stream
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := newStream(id)

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// Synchronize waits for all streams to complete and returns the first
// error raised by work on any of them since the last synchronization.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	var first error
	for _, s := range streams {
		if err := s.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Destroy drains and stops every stream. The context must not be used
// afterwards.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	if ctx.destroyed {
		ctx.mu.Unlock()
		return
	}
	ctx.destroyed = true
	streams := ctx.streams
	ctx.streams = map[int]*Stream{}
	ctx.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
}

// MemoryStats returns the bytes currently allocated and the peak.
func (ctx *Context) MemoryStats() (allocated, peak int64) {
	return ctx.memory.GetStats()
}

// TrimMemory releases the pool's cached free blocks and returns the bytes
// released. Call it once the streams are synchronized.
func (ctx *Context) TrimMemory() int64 {
	return ctx.memory.Trim()
}

// ParallelFor splits [0, n) into contiguous chunks, one per worker, and
// runs fn for every chunk concurrently. At most maxWorkers workers are
// used; zero or less means one per core. It returns once all chunks are
// done. A panic in any chunk is re-raised in the caller.
func (d *Device) ParallelFor(n, maxWorkers int, fn func(worker, start, end int)) {
	workers := d.Workers(n, maxWorkers)
	if workers == 0 {
		return
	}
	if workers == 1 {
		fn(0, 0, n)
		return
	}

	perWorker := (n + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicked interface{}
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		go func(w, start, end int) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					panicMu.Lock()
					if panicked == nil {
						panicked = p
					}
					panicMu.Unlock()
				}
			}()
			if start < end {
				fn(w, start, end)
			}
		}(w, start, end)
	}
	wg.Wait()

	if panicked != nil {
		panic(panicked)
	}
}

// Workers returns how many workers ParallelFor uses for n items.
func (d *Device) Workers(n, maxWorkers int) int {
	if n <= 0 {
		return 0
	}
	workers := d.NumCores
	if maxWorkers > 0 && maxWorkers < workers {
		workers = maxWorkers
	}
	if workers < 1 {
		workers = 1
	}
	if n < workers {
		workers = n
	}
	return workers
}
