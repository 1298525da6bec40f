package wire

import (
	"fmt"
	"time"
)

// Marshaler is implemented by request arguments that encode themselves.
type Marshaler interface {
	MarshalCtrlCmd(w *Writer)
}

// WriteValue encodes a request argument. A nil value writes nothing.
// Any type outside the protocol's value set panics.
func WriteValue(w *Writer, v any) {
	switch x := v.(type) {
	case nil:
	case Marshaler:
		x.MarshalCtrlCmd(w)
	case byte:
		w.WriteUint8(x)
	case uint16:
		w.WriteUint16(x)
	case int32:
		w.WriteInt32(x)
	case uint32:
		w.WriteUint32(x)
	case float32:
		w.WriteFloat32(x)
	case int64:
		w.WriteInt64(x)
	case uint64:
		w.WriteUint64(x)
	case string:
		w.WriteString(x)
	case time.Time:
		w.WriteTime(x)
	case []uint32:
		WriteList(w, x, WriteUint32Elem)
	case []string:
		WriteList(w, x, WriteStringElem)
	default:
		panic(fmt.Sprintf("wire: unsupported value type %T", v))
	}
}
