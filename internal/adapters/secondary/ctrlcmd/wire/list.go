package wire

// WriteList encodes items as [size][count][elements] with a backpatched size.
func WriteList[T any](w *Writer, items []T, elem func(*Writer, T)) {
	m := w.Begin()
	w.WriteInt32(int32(len(items)))
	for _, it := range items {
		elem(w, it)
	}
	w.End(m)
}

// ReadList decodes a list written by WriteList. Bytes between the last
// element and the declared tail are skipped. An empty list decodes to a
// non-nil empty slice.
func ReadList[T any](r *Reader, elem func(*Reader) (T, error)) ([]T, error) {
	env, err := r.Begin()
	if err != nil {
		return nil, err
	}
	countAt := r.off
	count, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, r.fail(countAt, ErrNegativeCount)
	}

	// every element occupies at least one byte, so the tail bounds the
	// allocation regardless of what count claims
	capHint := min(int(count), max(r.RemainIn(env), 0))
	items := make([]T, 0, capHint)
	for range count {
		v, err := elem(r)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := r.End(env); err != nil {
		return nil, err
	}
	return items, nil
}

func WriteUint32Elem(w *Writer, v uint32) { w.WriteUint32(v) }
func WriteStringElem(w *Writer, v string) { w.WriteString(v) }

func ReadUint32Elem(r *Reader) (uint32, error) { return r.ReadUint32() }
func ReadStringElem(r *Reader) (string, error) { return r.ReadString() }
