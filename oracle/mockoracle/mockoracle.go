// Package mockoracle is a fully in-process double for the Oracle hook
// surface (oracle.Hooks), grounded on core/vm/mock_statedb.go's pattern
// of an in-memory fake standing in for a production backend. Unlike
// the teacher's no-op stub methods, this one is a genuinely functional
// bump-allocator-backed memory model, since engine tests and
// cmd/oraclestep need real load/store/gep round-tripping to exercise
// the dispatcher.
package mockoracle

import (
	"fmt"
	"math"
	"sync"

	"github.com/icmccorm/llvm-project/oracle"
	"github.com/icmccorm/llvm-project/value"
)

type allocation struct {
	base  uint64
	bytes []byte
	freed bool
	stack bool
}

// Oracle is the mock Oracle's state: a bump allocator over a flat
// address space, keyed allocations by provenance alloc_id, and a call
// log for test assertions (seed scenarios 2–5 in spec.md §8 all assert
// on hook call order).
type Oracle struct {
	mu sync.Mutex

	nextAddr    uint64
	nextAllocID uint64
	nextTag     uint64

	allocs  map[uint64]*allocation // keyed by alloc_id
	globals map[string]value.MiriPointer

	// Externs lets a test or cmd/oraclestep register a Go function
	// behind a foreign symbol name, invoked by call_by_name.
	Externs map[string]func(args []value.Value) (value.Value, bool)

	Calls []string
}

// New constructs an empty mock Oracle. Address 0 is reserved as null,
// so the bump allocator starts at a page boundary.
func New() *Oracle {
	return &Oracle{
		nextAddr:    4096,
		nextAllocID: 1,
		nextTag:     1,
		allocs:      make(map[uint64]*allocation),
		globals:     make(map[string]value.MiriPointer),
		Externs:     make(map[string]func(args []value.Value) (value.Value, bool)),
	}
}

func (o *Oracle) log(format string, args ...interface{}) {
	o.Calls = append(o.Calls, fmt.Sprintf(format, args...))
}

// Hooks builds the oracle.Hooks table bound to this mock's state.
func (o *Oracle) Hooks() oracle.Hooks {
	return oracle.Hooks{
		Malloc:             o.malloc,
		Free:               o.free,
		Load:               o.load,
		Store:              o.store,
		Memset:             o.memset,
		Memcpy:             o.memcpy,
		PtrToInt:           o.ptrToInt,
		IntToPtr:           o.intToPtr,
		GEP:                o.gep,
		RegisterGlobal:     o.registerGlobal,
		CallByName:         o.callByName,
		CallByPointer:      o.callByPointer,
		StackTraceRecorder: o.stackTraceRecorder,
	}
}

func (o *Oracle) malloc(_ oracle.Wrapper, size, align uint64, isStack bool) value.MiriPointer {
	o.mu.Lock()
	defer o.mu.Unlock()

	if align == 0 {
		align = 1
	}
	if rem := o.nextAddr % align; rem != 0 {
		o.nextAddr += align - rem
	}
	base := o.nextAddr
	o.nextAddr += size
	if o.nextAddr == 0 {
		o.nextAddr = align
	}

	id := o.nextAllocID
	o.nextAllocID++
	tag := o.nextTag
	o.nextTag++

	o.allocs[id] = &allocation{base: base, bytes: make([]byte, size), stack: isStack}
	o.log("malloc(size=%d,align=%d,stack=%v) -> alloc=%d", size, align, isStack, id)
	return value.MiriPointer{Addr: base, Prov: value.MiriProvenance{AllocID: id, Tag: tag}}
}

func (o *Oracle) free(_ oracle.Wrapper, ptr value.MiriPointer) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.allocs[ptr.Prov.AllocID]
	o.log("free(alloc=%d)", ptr.Prov.AllocID)
	if !ok || a.freed {
		return true
	}
	a.freed = true
	return false
}

func (o *Oracle) find(ptr value.MiriPointer) (*allocation, int, bool) {
	a, ok := o.allocs[ptr.Prov.AllocID]
	if !ok || a.freed {
		return nil, 0, false
	}
	off := int(ptr.Addr - a.base)
	if off < 0 || off > len(a.bytes) {
		return nil, 0, false
	}
	return a, off, true
}

func (o *Oracle) load(_ oracle.Wrapper, out oracle.Handle, ptr value.MiriPointer, ty string, bytes, align uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log("load(alloc=%d,addr=%d,ty=%s,bytes=%d)", ptr.Prov.AllocID, ptr.Addr, ty, bytes)
	a, off, ok := o.find(ptr)
	if !ok || off+int(bytes) > len(a.bytes) {
		return true
	}
	buf := a.bytes[off : off+int(bytes)]
	decodeInto(out, ty, buf)
	return false
}

func (o *Oracle) store(_ oracle.Wrapper, in oracle.Handle, ptr value.MiriPointer, ty string, bytes, align uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log("store(alloc=%d,addr=%d,ty=%s,bytes=%d)", ptr.Prov.AllocID, ptr.Addr, ty, bytes)
	a, off, ok := o.find(ptr)
	if !ok || off+int(bytes) > len(a.bytes) {
		return true
	}
	buf := encodeFrom(in, ty, int(bytes))
	copy(a.bytes[off:off+int(bytes)], buf)
	return false
}

func (o *Oracle) memset(_ oracle.Wrapper, ptr value.MiriPointer, b byte, length uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, off, ok := o.find(ptr)
	if !ok || off+int(length) > len(a.bytes) {
		return true
	}
	for i := 0; i < int(length); i++ {
		a.bytes[off+i] = b
	}
	return false
}

func (o *Oracle) memcpy(_ oracle.Wrapper, dst, src value.MiriPointer, length uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	da, doff, dok := o.find(dst)
	sa, soff, sok := o.find(src)
	if !dok || !sok || doff+int(length) > len(da.bytes) || soff+int(length) > len(sa.bytes) {
		return true
	}
	copy(da.bytes[doff:doff+int(length)], sa.bytes[soff:soff+int(length)])
	return false
}

func (o *Oracle) ptrToInt(_ oracle.Wrapper, p value.MiriPointer) uint64 {
	return p.Addr
}

func (o *Oracle) intToPtr(_ oracle.Wrapper, addr uint64) value.MiriPointer {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, a := range o.allocs {
		if !a.freed && addr >= a.base && addr < a.base+uint64(len(a.bytes)) {
			return value.MiriPointer{Addr: addr, Prov: value.MiriProvenance{AllocID: id}}
		}
	}
	return value.MiriPointer{Addr: addr}
}

func (o *Oracle) gep(_ oracle.Wrapper, base value.MiriPointer, offset int64) value.MiriPointer {
	return value.MiriPointer{Addr: uint64(int64(base.Addr) + offset), Prov: base.Prov}
}

func (o *Oracle) registerGlobal(_ oracle.Wrapper, name string, addr uint64, ptr value.MiriPointer) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.globals[name] = ptr
	o.log("register_global(%s)", name)
	return true
}

func (o *Oracle) callByName(_ oracle.Wrapper, args []oracle.ArgValue, name string, retTy string) bool {
	o.log("call_by_name(%s)", name)
	fn, ok := o.Externs[name]
	if !ok {
		// Unregistered names are left to the host, which supplies the
		// result through the engine's pending-return step.
		return false
	}
	vals := make([]value.Value, len(args))
	for i, a := range args {
		vals[i] = a.H.Value()
	}
	_, faulted := fn(vals)
	return faulted
}

func (o *Oracle) callByPointer(_ oracle.Wrapper, fn value.MiriPointer, args []oracle.ArgValue, retTy string) bool {
	o.log("call_by_pointer(alloc=%d)", fn.Prov.AllocID)
	return true
}

func (o *Oracle) stackTraceRecorder(_ oracle.Wrapper, trace []oracle.TraceEntry, instrText string) {
	o.log("stack_trace_recorder(%d frames, %q)", len(trace), instrText)
}

func decodeInto(h oracle.Handle, ty string, buf []byte) {
	switch ty {
	case "f32":
		var bits uint32
		for i := 0; i < 4 && i < len(buf); i++ {
			bits |= uint32(buf[i]) << (8 * i)
		}
		h.SetFloat32(math.Float32frombits(bits))
	case "f64":
		var bits uint64
		for i := 0; i < 8 && i < len(buf); i++ {
			bits |= uint64(buf[i]) << (8 * i)
		}
		h.SetFloat64(math.Float64frombits(bits))
	case "ptr":
		var addr uint64
		for i := 0; i < 8 && i < len(buf); i++ {
			addr |= uint64(buf[i]) << (8 * i)
		}
		h.SetPointer(value.MiriPointer{Addr: addr})
	default:
		h.SetIntBytes(widthOf(ty, len(buf)), buf)
	}
}

func encodeFrom(h oracle.Handle, ty string, byteLen int) []byte {
	switch ty {
	case "f32":
		bits := math.Float32bits(h.GetFloat32())
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
	case "f64":
		bits := math.Float64bits(h.GetFloat64())
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(bits >> (8 * i))
		}
		return out
	case "ptr":
		p := h.GetPointer()
		out := make([]byte, 8)
		for i := 0; i < 8; i++ {
			out[i] = byte(p.Addr >> (8 * i))
		}
		return out
	default:
		return h.GetIntBytes(byteLen)
	}
}

func widthOf(ty string, byteLen int) uint32 {
	switch ty {
	case "i1":
		return 1
	case "i8":
		return 8
	case "i16":
		return 16
	case "i32":
		return 32
	case "i64":
		return 64
	case "i128", "va_list":
		return 128
	default:
		return uint32(byteLen) * 8
	}
}
