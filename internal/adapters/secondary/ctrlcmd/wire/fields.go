package wire

import "time"

// Fields reads the fields of one record in order and keeps the first
// error. Once an error is recorded every later call is a no-op.
type Fields struct {
	r     *Reader
	stage string
	err   error
}

// NewFields starts reading the fields of the record named stage.
func NewFields(r *Reader, stage string) *Fields {
	return &Fields{r: r, stage: stage}
}

func (f *Fields) Err() error { return f.err }

// Fail records err against field unless an error is already recorded.
func (f *Fields) Fail(field string, err error) {
	if f.err == nil && err != nil {
		f.err = Annotate(err, f.stage, field)
	}
}

func (f *Fields) Uint8(field string, dst *byte) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadUint8()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) Uint16(field string, dst *uint16) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadUint16()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) Int32(field string, dst *int32) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadInt32()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) Uint32(field string, dst *uint32) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadUint32()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) Uint64(field string, dst *uint64) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadUint64()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) Time(field string, dst *time.Time) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadTime()
	f.set(field, err, func() { *dst = v })
}

func (f *Fields) String(field string, dst *string) {
	if f.err != nil {
		return
	}
	v, err := f.r.ReadString()
	f.set(field, err, func() { *dst = v })
}

// Do runs a nested decoder for field.
func (f *Fields) Do(field string, fn func(*Reader) error) {
	if f.err != nil {
		return
	}
	f.Fail(field, fn(f.r))
}

func (f *Fields) set(field string, err error, assign func()) {
	if err != nil {
		f.Fail(field, err)
		return
	}
	assign()
}

// FieldList reads a list field into dst.
func FieldList[T any](f *Fields, field string, dst *[]T, elem func(*Reader) (T, error)) {
	f.Do(field, func(r *Reader) error {
		v, err := ReadList(r, elem)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}
