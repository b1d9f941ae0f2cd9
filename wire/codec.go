package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Tk21111/sketch_server/sketch"
)

// MaxDecodedSize bounds the decompressed size of a single payload.
const MaxDecodedSize = 8 << 20

// envelope field numbers, one per message kind
const (
	fieldSubmitStroke    protowire.Number = 1
	fieldDeclareViewport protowire.Number = 2
	fieldUndoRequest     protowire.Number = 3
	fieldChatText        protowire.Number = 4
	fieldFetchTile       protowire.Number = 5

	fieldStrokeAdded     protowire.Number = 1
	fieldStrokeAddedEcho protowire.Number = 2
	fieldStrokeRemoved   protowire.Number = 3
	fieldChatBroadcast   protowire.Number = 4
)

var (
	errWireType      = errors.New("unexpected wire type")
	errEmptyEnvelope = errors.New("no message in envelope")
	errMultiEnvelope = errors.New("more than one message in envelope")
)

var (
	encoder = mustEncoder()
	decoder = mustDecoder()
)

func mustEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(MaxDecodedSize),
	)
	if err != nil {
		panic(err)
	}
	return dec
}

// DecodeError reports why a payload could not be turned into a message.
// Stage is "decompress" or "decode".
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func EncodeClient(m ClientMessage) ([]byte, error) {
	var b []byte
	switch m := m.(type) {
	case SubmitStroke:
		b = appendMessage(b, fieldSubmitStroke, func(b []byte) []byte {
			return appendLayerStroke(b, m.Layer, &m.Stroke)
		})
	case DeclareViewport:
		b = appendMessage(b, fieldDeclareViewport, func(b []byte) []byte {
			b = appendMessage(b, 1, func(b []byte) []byte { return appendOffset(b, m.UpperLeft) })
			return appendMessage(b, 2, func(b []byte) []byte { return appendOffset(b, m.LowerRight) })
		})
	case UndoRequest:
		b = appendMessage(b, fieldUndoRequest, func(b []byte) []byte {
			return appendVarint(b, 1, uint64(m.Layer))
		})
	case ChatText:
		b = appendMessage(b, fieldChatText, func(b []byte) []byte {
			return appendString(b, 1, m.Text)
		})
	case FetchTile:
		b = appendMessage(b, fieldFetchTile, func(b []byte) []byte {
			b = appendVarint(b, 1, uint64(m.Layer))
			return appendMessage(b, 2, func(b []byte) []byte { return appendOffset(b, m.Tile) })
		})
	default:
		return nil, fmt.Errorf("wire: cannot encode client message %T", m)
	}
	return encoder.EncodeAll(b, nil), nil
}

func EncodeServer(m ServerMessage) ([]byte, error) {
	var b []byte
	switch m := m.(type) {
	case StrokeAdded:
		b = appendMessage(b, fieldStrokeAdded, func(b []byte) []byte {
			return appendLayerStroke(b, m.Layer, &m.Stroke)
		})
	case StrokeAddedEcho:
		b = appendMessage(b, fieldStrokeAddedEcho, func(b []byte) []byte {
			return appendLayerStroke(b, m.Layer, &m.Stroke)
		})
	case StrokeRemoved:
		b = appendMessage(b, fieldStrokeRemoved, func(b []byte) []byte {
			b = appendVarint(b, 1, uint64(m.Layer))
			return appendVarint(b, 2, m.StrokeID)
		})
	case ChatBroadcast:
		b = appendMessage(b, fieldChatBroadcast, func(b []byte) []byte {
			b = appendString(b, 1, m.Name)
			return appendString(b, 2, m.Text)
		})
	default:
		return nil, fmt.Errorf("wire: cannot encode server message %T", m)
	}
	return encoder.EncodeAll(b, nil), nil
}

func DecodeClient(payload []byte) (ClientMessage, error) {
	num, body, err := openEnvelope(payload)
	if err != nil {
		return nil, err
	}

	var m ClientMessage
	switch num {
	case fieldSubmitStroke:
		var v SubmitStroke
		v.Layer, v.Stroke, err = decodeLayerStroke(body)
		m = v
	case fieldDeclareViewport:
		var v DeclareViewport
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeMessage(typ, b, func(b []byte) (err error) {
					v.UpperLeft, err = decodeOffset(b)
					return err
				})
			case 2:
				return consumeMessage(typ, b, func(b []byte) (err error) {
					v.LowerRight, err = decodeOffset(b)
					return err
				})
			}
			return 0, nil
		})
		m = v
	case fieldUndoRequest:
		var v UndoRequest
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 1 {
				return consumeLayer(typ, b, &v.Layer)
			}
			return 0, nil
		})
		m = v
	case fieldChatText:
		var v ChatText
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 1 {
				return consumeString(typ, b, &v.Text)
			}
			return 0, nil
		})
		m = v
	case fieldFetchTile:
		var v FetchTile
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeLayer(typ, b, &v.Layer)
			case 2:
				return consumeMessage(typ, b, func(b []byte) (err error) {
					v.Tile, err = decodeOffset(b)
					return err
				})
			}
			return 0, nil
		})
		m = v
	default:
		err = fmt.Errorf("unknown client message kind %d", num)
	}
	if err != nil {
		return nil, &DecodeError{Stage: "decode", Err: err}
	}
	return m, nil
}

func DecodeServer(payload []byte) (ServerMessage, error) {
	num, body, err := openEnvelope(payload)
	if err != nil {
		return nil, err
	}

	var m ServerMessage
	switch num {
	case fieldStrokeAdded:
		var v StrokeAdded
		v.Layer, v.Stroke, err = decodeLayerStroke(body)
		m = v
	case fieldStrokeAddedEcho:
		var v StrokeAddedEcho
		v.Layer, v.Stroke, err = decodeLayerStroke(body)
		m = v
	case fieldStrokeRemoved:
		var v StrokeRemoved
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeLayer(typ, b, &v.Layer)
			case 2:
				return consumeUint64(typ, b, &v.StrokeID)
			}
			return 0, nil
		})
		m = v
	case fieldChatBroadcast:
		var v ChatBroadcast
		err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeString(typ, b, &v.Name)
			case 2:
				return consumeString(typ, b, &v.Text)
			}
			return 0, nil
		})
		m = v
	default:
		err = fmt.Errorf("unknown server message kind %d", num)
	}
	if err != nil {
		return nil, &DecodeError{Stage: "decode", Err: err}
	}
	return m, nil
}

// openEnvelope decompresses payload and returns its single message field.
func openEnvelope(payload []byte) (protowire.Number, []byte, error) {
	raw, err := decoder.DecodeAll(payload, nil)
	if err != nil {
		return 0, nil, &DecodeError{Stage: "decompress", Err: err}
	}

	var (
		found protowire.Number
		body  []byte
	)
	err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if found != 0 {
			return 0, errMultiEnvelope
		}
		if typ != protowire.BytesType {
			return 0, fmt.Errorf("message kind %d: %w", num, errWireType)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		found, body = num, v
		return n, nil
	})
	if err == nil && found == 0 {
		err = errEmptyEnvelope
	}
	if err != nil {
		return 0, nil, &DecodeError{Stage: "decode", Err: err}
	}
	return found, body, nil
}

// layer + stroke body shared by SubmitStroke, StrokeAdded and StrokeAddedEcho

func appendLayerStroke(b []byte, layer uint8, s *sketch.PaintStroke) []byte {
	b = appendVarint(b, 1, uint64(layer))
	return appendMessage(b, 2, func(b []byte) []byte { return appendStroke(b, s) })
}

func decodeLayerStroke(body []byte) (layer uint8, s sketch.PaintStroke, err error) {
	err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeLayer(typ, b, &layer)
		case 2:
			return consumeMessage(typ, b, func(b []byte) (err error) {
				s, err = decodeStroke(b)
				return err
			})
		}
		return 0, nil
	})
	return layer, s, err
}

func appendStroke(b []byte, s *sketch.PaintStroke) []byte {
	b = appendVarint(b, 1, s.ID)
	b = appendVarint(b, 2, s.UserID)
	b = appendMessage(b, 3, func(b []byte) []byte { return appendBrush(b, s.Brush) })
	for _, p := range s.Points {
		b = appendMessage(b, 4, func(b []byte) []byte {
			b = appendFloat(b, 1, p.Pressure)
			b = appendInt32(b, 2, p.X)
			return appendInt32(b, 3, p.Y)
		})
	}
	return b
}

func decodeStroke(body []byte) (s sketch.PaintStroke, err error) {
	err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeUint64(typ, b, &s.ID)
		case 2:
			return consumeUint64(typ, b, &s.UserID)
		case 3:
			return consumeMessage(typ, b, func(b []byte) (err error) {
				s.Brush, err = decodeBrush(b)
				return err
			})
		case 4:
			return consumeMessage(typ, b, func(b []byte) error {
				p, err := decodePoint(b)
				s.Points = append(s.Points, p)
				return err
			})
		}
		return 0, nil
	})
	return s, err
}

func appendBrush(b []byte, br sketch.Brush) []byte {
	c := br.Color
	b = appendVarint(b, 1, uint64(c.R)<<24|uint64(c.G)<<16|uint64(c.B)<<8|uint64(c.A))
	b = appendFloat(b, 2, br.Width)
	b = appendFloat(b, 3, br.Hardness)
	b = appendFloat(b, 4, br.Smudging)
	var replace uint64
	if br.Replace {
		replace = 1
	}
	return appendVarint(b, 5, replace)
}

func decodeBrush(body []byte) (br sketch.Brush, err error) {
	err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var rgba uint64
			n, err := consumeUint64(typ, b, &rgba)
			if err == nil && rgba > math.MaxUint32 {
				err = fmt.Errorf("color %#x out of range", rgba)
			}
			br.Color = sketch.Color{R: uint8(rgba >> 24), G: uint8(rgba >> 16), B: uint8(rgba >> 8), A: uint8(rgba)}
			return n, err
		case 2:
			return consumeFloat(typ, b, &br.Width)
		case 3:
			return consumeFloat(typ, b, &br.Hardness)
		case 4:
			return consumeFloat(typ, b, &br.Smudging)
		case 5:
			var v uint64
			n, err := consumeUint64(typ, b, &v)
			br.Replace = v != 0
			return n, err
		}
		return 0, nil
	})
	return br, err
}

func decodePoint(body []byte) (p sketch.StrokePoint, err error) {
	err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeFloat(typ, b, &p.Pressure)
		case 2:
			return consumeInt32(typ, b, &p.X)
		case 3:
			return consumeInt32(typ, b, &p.Y)
		}
		return 0, nil
	})
	return p, err
}

func appendOffset(b []byte, o sketch.Offset) []byte {
	b = appendInt32(b, 1, o.X)
	return appendInt32(b, 2, o.Y)
}

func decodeOffset(body []byte) (o sketch.Offset, err error) {
	err = walk(body, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt32(typ, b, &o.X)
		case 2:
			return consumeInt32(typ, b, &o.Y)
		}
		return 0, nil
	})
	return o, err
}
