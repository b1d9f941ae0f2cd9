package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutboxFIFO(t *testing.T) {
	o := NewOutbox()
	for _, m := range []string{"a", "b", "c"} {
		assert.NoError(t, o.Enqueue([]byte(m)))
	}
	assert.Equal(t, 3, o.Len())

	select {
	case <-o.Ready():
	default:
		t.Fatal("Ready should fire after Enqueue")
	}

	msgs, closed := o.Drain()
	assert.False(t, closed)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, msgs)
	assert.Zero(t, o.Len())
}

func TestOutboxNeverBlocks(t *testing.T) {
	o := NewOutbox()
	for i := 0; i < 100_000; i++ {
		if err := o.Enqueue([]byte{byte(i)}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	assert.Equal(t, 100_000, o.Len())
}

func TestOutboxClose(t *testing.T) {
	o := NewOutbox()
	assert.NoError(t, o.Enqueue([]byte("last")))
	o.Close()

	assert.ErrorIs(t, o.Enqueue([]byte("late")), ErrOutboxClosed)

	<-o.Ready()
	msgs, closed := o.Drain()
	assert.True(t, closed)
	assert.Equal(t, [][]byte{[]byte("last")}, msgs, "queued messages survive Close")
}
