package wire

import (
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Tk21111/sketch_server/sketch"
)

func sampleStroke() sketch.PaintStroke {
	return sketch.PaintStroke{
		ID:     42,
		UserID: 7,
		Brush: sketch.Brush{
			Color:    sketch.Color{R: 10, G: 20, B: 30, A: 255},
			Width:    3.5,
			Hardness: 0.25,
			Smudging: 1,
			Replace:  true,
		},
		Points: []sketch.StrokePoint{
			{Pressure: 0.5, X: -150, Y: 20},
			{Pressure: 1, X: 2147483647, Y: -2147483648},
			{},
		},
	}
}

func TestClientRoundTrip(t *testing.T) {
	messages := []ClientMessage{
		SubmitStroke{Layer: 3, Stroke: sampleStroke()},
		SubmitStroke{Layer: 255, Stroke: sketch.PaintStroke{Brush: sketch.DefaultBrush()}},
		DeclareViewport{UpperLeft: sketch.Offset{X: -1024, Y: -5}, LowerRight: sketch.Offset{X: 2048, Y: 900}},
		UndoRequest{},
		UndoRequest{Layer: 99},
		ChatText{Text: "hello, 世界"},
		ChatText{},
		FetchTile{Layer: 1, Tile: sketch.Offset{X: -1, Y: 1}},
	}

	for _, m := range messages {
		b, err := EncodeClient(m)
		require.NoError(t, err)

		got, err := DecodeClient(b)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestEmptyPointsDecodeAsNil(t *testing.T) {
	b, err := EncodeClient(SubmitStroke{Stroke: sketch.PaintStroke{
		Brush:  sketch.DefaultBrush(),
		Points: []sketch.StrokePoint{},
	}})
	require.NoError(t, err)

	got, err := DecodeClient(b)
	require.NoError(t, err)
	m, ok := got.(SubmitStroke)
	require.True(t, ok)
	assert.Nil(t, m.Stroke.Points)
	assert.Equal(t, SubmitStroke{Stroke: sketch.PaintStroke{Brush: sketch.DefaultBrush()}}, m)
}

func TestServerRoundTrip(t *testing.T) {
	messages := []ServerMessage{
		StrokeAdded{Layer: 0, Stroke: sampleStroke()},
		StrokeAddedEcho{Layer: 12, Stroke: sampleStroke()},
		StrokeRemoved{Layer: 4, StrokeID: 1 << 40},
		ChatBroadcast{Name: "ana", Text: "hi"},
	}

	for _, m := range messages {
		b, err := EncodeServer(m)
		require.NoError(t, err)

		got, err := DecodeServer(b)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestEchoKeepsItsTag(t *testing.T) {
	b, err := EncodeServer(StrokeAddedEcho{Layer: 1, Stroke: sampleStroke()})
	require.NoError(t, err)

	got, err := DecodeServer(b)
	require.NoError(t, err)
	assert.IsType(t, StrokeAddedEcho{}, got)
}

func TestEncodeDeterministic(t *testing.T) {
	m := StrokeAdded{Layer: 2, Stroke: sampleStroke()}

	a, err := EncodeServer(m)
	require.NoError(t, err)
	b, err := EncodeServer(m)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeGarbage(t *testing.T) {
	for _, payload := range [][]byte{nil, {}, []byte("not zstd at all"), {0x28, 0xb5, 0x2f}} {
		_, err := DecodeClient(payload)
		require.Error(t, err)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.NotEmpty(t, de.Error())
	}
}

func TestDecodeTruncated(t *testing.T) {
	b, err := EncodeClient(SubmitStroke{Layer: 1, Stroke: sampleStroke()})
	require.NoError(t, err)

	for _, cut := range []int{1, 3, len(b) / 2} {
		_, err = DecodeClient(b[:len(b)-cut])
		var de *DecodeError
		assert.ErrorAs(t, err, &de, "cut %d", cut)
	}
}

func compress(raw []byte) []byte {
	enc, _ := zstd.NewWriter(nil)
	defer enc.Close()
	return enc.EncodeAll(raw, nil)
}

func TestDecodeBadBody(t *testing.T) {
	tests := map[string][]byte{
		"empty envelope": {},
		"unknown kind": protowire.AppendBytes(
			protowire.AppendTag(nil, 9, protowire.BytesType), []byte{}),
		"varint envelope": protowire.AppendVarint(
			protowire.AppendTag(nil, fieldUndoRequest, protowire.VarintType), 1),
		"layer overflow": appendMessage(nil, fieldUndoRequest, func(b []byte) []byte {
			return appendVarint(b, 1, 256)
		}),
		"wrong field type": appendMessage(nil, fieldChatText, func(b []byte) []byte {
			return appendVarint(b, 1, 3)
		}),
		"two messages": appendMessage(
			appendMessage(nil, fieldChatText, func(b []byte) []byte { return b }),
			fieldChatText, func(b []byte) []byte { return b }),
		"truncated field": {0x0a, 0x05, 0x08},
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeClient(compress(raw))
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "decode", de.Stage)
		})
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	raw := appendMessage(nil, fieldUndoRequest, func(b []byte) []byte {
		b = appendString(b, 15, "future")
		return appendVarint(b, 1, 7)
	})

	got, err := DecodeClient(compress(raw))
	require.NoError(t, err)
	assert.Equal(t, UndoRequest{Layer: 7}, got)
}

type bogus struct{}

func (bogus) clientMessage() {}
func (bogus) serverMessage() {}

func TestEncodeUnknownType(t *testing.T) {
	_, err := EncodeClient(bogus{})
	assert.Error(t, err)
	_, err = EncodeServer(nil)
	assert.Error(t, err)
}
