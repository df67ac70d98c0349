package formats

import (
	"encoding/binary"
	"io"
	stdmath "math"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// abmReader walks an ABM body. The first short read sets err and every
// later read returns zero values.
type abmReader struct {
	data []byte
	off  int
	err  error
}

func (r *abmReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.off {
		r.err = ErrTruncatedABMData
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *abmReader) i16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *abmReader) i32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *abmReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *abmReader) f32() float32 {
	return stdmath.Float32frombits(uint32(r.i32()))
}

func (r *abmReader) vec3() math.Vec3 {
	return math.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *abmReader) vec4() math.Vec4 {
	return math.Vec4{r.f32(), r.f32(), r.f32(), r.f32()}
}

func (r *abmReader) mat4() math.Mat4 {
	var m math.Mat4
	for i := range m {
		m[i] = r.f32()
	}
	return m
}

// count reads an int32 element count and checks that at least
// count*elemSize bytes remain.
func (r *abmReader) count(elemSize int) int {
	n := r.i32()
	if r.err != nil {
		return 0
	}
	if n < 0 || int64(n)*int64(elemSize) > int64(len(r.data)-r.off) {
		r.err = ErrTruncatedABMData
		return 0
	}
	return int(n)
}

// str reads a length-prefixed, NUL-terminated name. Length 0 is absent.
func (r *abmReader) str() string {
	n := r.count(1)
	if n == 0 {
		return ""
	}
	b := r.take(n + 1)
	if b == nil {
		return ""
	}
	return string(b[:n])
}

func (r *abmReader) int32s(arena *bundle.Arena[int32], n int) []int32 {
	out := arena.Alloc(n)
	for i := range out {
		out[i] = r.i32()
	}
	return out
}

// abmWriter mirrors abmReader with a sticky error.
type abmWriter struct {
	w   io.Writer
	buf [8]byte
	n   int64
	err error
}

func (w *abmWriter) write(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.n += int64(n)
	w.err = err
}

func (w *abmWriter) i16(v int16) {
	binary.LittleEndian.PutUint16(w.buf[:2], uint16(v))
	w.write(w.buf[:2])
}

func (w *abmWriter) i32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

func (w *abmWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.write(w.buf[:8])
}

func (w *abmWriter) f32(v float32) {
	w.i32(int32(stdmath.Float32bits(v)))
}

func (w *abmWriter) vec3(v math.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *abmWriter) vec4(v math.Vec4) {
	for _, c := range v {
		w.f32(c)
	}
}

func (w *abmWriter) mat4(m math.Mat4) {
	for _, c := range m {
		w.f32(c)
	}
}

func (w *abmWriter) str(s string) {
	w.i32(int32(len(s)))
	if s == "" {
		return
	}
	w.write([]byte(s))
	w.write([]byte{0})
}

func (w *abmWriter) int32s(v []int32) {
	for _, x := range v {
		w.i32(x)
	}
}
