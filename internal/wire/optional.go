package wire

// Optional values serialize as one discriminator byte (0 or 1) followed
// by the value iff present.

// EncodeOptional writes *v through enc when v is non-nil.
func EncodeOptional[T any](w Sink, v *T, enc func(Sink, T)) {
	if v == nil {
		w.WriteU8(0)
		return
	}
	w.WriteU8(1)
	enc(w, *v)
}

// DecodeOptional reads an optional value. A discriminator other than 0 or
// 1 invalidates the stream.
func DecodeOptional[T any](r *Reader, dec func(*Reader) T) *T {
	switch r.U8() {
	case 0:
		return nil
	case 1:
		v := dec(r)
		if !r.Valid() {
			return nil
		}
		return &v
	default:
		r.Invalidate()
		return nil
	}
}
