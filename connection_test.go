package taior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taior/taior/aorp"
	"github.com/taior/taior/log"
)

func TestConnectionStartsPendingAndBecomesUsableOnce(t *testing.T) {
	c := newConnection("peer-a", "addr", log.Discard())
	assert.False(t, c.Usable())

	first := c.markHandshaked()
	assert.True(t, first)
	assert.True(t, c.Usable())

	second := c.markHandshaked()
	assert.False(t, second, "markHandshaked reports true only the first time")
}

func TestConnectionRunPreservesFrameOrder(t *testing.T) {
	c := newConnection("peer-a", "addr", log.Discard())
	defer c.close()

	received := make(chan []byte, 8)
	go c.run(0, func(frame []byte) error {
		received <- frame
		return nil
	})

	frames := [][]byte{{1}, {2}, {3}, {4}, {5}}
	for _, f := range frames {
		c.enqueue(f)
	}

	for _, want := range frames {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
}

func TestEnqueueAfterCloseDoesNotBlock(t *testing.T) {
	c := newConnection("peer-a", "addr", log.Discard())
	c.close()

	done := make(chan struct{})
	go func() {
		c.enqueue([]byte("dropped"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked after close")
	}
}

func TestBuildCoverFrameHasCoverMagicAndSpecSize(t *testing.T) {
	for i := 0; i < 50; i++ {
		frame := buildCoverFrame()
		require.GreaterOrEqual(t, len(frame), 1+512)
		require.LessOrEqual(t, len(frame), 1+2048)
		assert.Equal(t, byte(aorp.MagicCover), frame[0])
	}
}

func TestRandUint64StaysWithinBound(t *testing.T) {
	const bound = 17
	for i := 0; i < 500; i++ {
		v := randUint64(bound)
		assert.Less(t, v, uint64(bound))
	}
}

func TestRandUint64ZeroBoundIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), randUint64(0))
}
