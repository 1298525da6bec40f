package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/githubixx/edcbmon-go/internal/domain"
)

var (
	// ErrEndOfStream indicates a read past the end of the buffer
	ErrEndOfStream = errors.New("end of stream")

	// ErrBadSize indicates a size field below the envelope minimum or
	// larger than the bytes left in the buffer
	ErrBadSize = errors.New("invalid size field")

	// ErrTailOverrun indicates a structure consumed more bytes than it declared
	ErrTailOverrun = errors.New("read past declared size")

	// ErrNegativeCount indicates a list with a negative element count
	ErrNegativeCount = errors.New("negative element count")

	// ErrInvalidTime indicates a date/time field with out-of-range components
	ErrInvalidTime = errors.New("invalid date/time")
)

// FramingError reports where a decode failed.
// Stage and Field name the innermost record and field; Path lists the
// enclosing record fields from the outermost inward.
type FramingError struct {
	Stage  string
	Field  string
	Path   []string
	Offset int
	Err    error
}

func (e *FramingError) Error() string {
	var b strings.Builder
	b.WriteString("ctrlcmd: framing error")
	if loc := e.location(); loc != "" {
		b.WriteString(" in ")
		b.WriteString(loc)
	}
	fmt.Fprintf(&b, " at offset %d: %v", e.Offset, e.Err)
	return b.String()
}

func (e *FramingError) location() string {
	parts := make([]string, 0, len(e.Path)+1)
	parts = append(parts, e.Path...)
	switch {
	case e.Stage != "" && e.Field != "":
		parts = append(parts, e.Stage+"."+e.Field)
	case e.Stage != "":
		parts = append(parts, e.Stage)
	case e.Field != "":
		parts = append(parts, e.Field)
	}
	return strings.Join(parts, " > ")
}

func (e *FramingError) Unwrap() error { return e.Err }

// Is makes every framing error match domain.ErrFraming.
func (e *FramingError) Is(target error) bool {
	return target == domain.ErrFraming
}

// Annotate tags a framing error with the record and field being decoded.
// The first annotation names the innermost location; later ones are
// prepended to Path. Other errors are returned unchanged.
func Annotate(err error, stage, field string) error {
	var fe *FramingError
	if !errors.As(err, &fe) {
		return err
	}
	if fe.Stage == "" && fe.Field == "" {
		fe.Stage = stage
		fe.Field = field
		return err
	}
	loc := stage
	if field != "" {
		loc = stage + "." + field
	}
	fe.Path = append([]string{loc}, fe.Path...)
	return err
}
