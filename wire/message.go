// Package wire is the binary message format spoken between clients and the
// server: a protobuf-style field encoding compressed with zstd.
package wire

import "github.com/Tk21111/sketch_server/sketch"

// ClientMessage is anything a client may send.
type ClientMessage interface {
	clientMessage()
}

// ServerMessage is anything the server may send.
type ServerMessage interface {
	serverMessage()
}

// SubmitStroke carries a draft stroke. Its ID and UserID are ignored; the
// layer assigns both.
type SubmitStroke struct {
	Layer  uint8
	Stroke sketch.PaintStroke
}

// DeclareViewport replaces the sender's subscription with the tiles covering
// the rectangle.
type DeclareViewport struct {
	UpperLeft  sketch.Offset
	LowerRight sketch.Offset
}

// UndoRequest removes the sender's most recent stroke on Layer.
type UndoRequest struct {
	Layer uint8
}

type ChatText struct {
	Text string
}

// FetchTile asks for the strokes of the tile containing Tile on Layer.
type FetchTile struct {
	Layer uint8
	Tile  sketch.Offset
}

type StrokeAdded struct {
	Layer  uint8
	Stroke sketch.PaintStroke
}

// StrokeAddedEcho is StrokeAdded as seen by the stroke's own author.
type StrokeAddedEcho struct {
	Layer  uint8
	Stroke sketch.PaintStroke
}

type StrokeRemoved struct {
	Layer    uint8
	StrokeID uint64
}

type ChatBroadcast struct {
	Name string
	Text string
}

func (SubmitStroke) clientMessage()    {}
func (DeclareViewport) clientMessage() {}
func (UndoRequest) clientMessage()     {}
func (ChatText) clientMessage()        {}
func (FetchTile) clientMessage()       {}

func (StrokeAdded) serverMessage()     {}
func (StrokeAddedEcho) serverMessage() {}
func (StrokeRemoved) serverMessage()   {}
func (ChatBroadcast) serverMessage()   {}
