package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusgp/stickerlot/pkg/gateway"
)

func TestEventLoop_SameConversationKeepsOrder(t *testing.T) {
	f := setupRouter(t, "")
	loop := NewEventLoop(f.router, zerolog.Nop())

	inbound := make(chan gateway.InboundMessage)
	done := make(chan struct{})
	go func() {
		loop.Run(context.Background(), inbound)
		close(done)
	}()

	inbound <- imageMsg("U1", "sticker lots", []byte("start"))
	inbound <- imageMsg("U1", "", []byte("img-1"))
	inbound <- imageMsg("U1", "", []byte("img-2"))
	inbound <- imageMsg("U1", "", []byte("img-3"))
	inbound <- imageMsg("U1", "end", []byte("img-4"))
	close(inbound)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not stop")
	}

	require.Len(t, f.batches.batches, 1)
	assert.Equal(t,
		[][]byte{[]byte("img-1"), []byte("img-2"), []byte("img-3"), []byte("img-4")},
		f.batches.batches[0])
}

func TestEventLoop_StopsOnContextCancel(t *testing.T) {
	f := setupRouter(t, "")
	loop := NewEventLoop(f.router, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	inbound := make(chan gateway.InboundMessage)

	done := make(chan struct{})
	go func() {
		loop.Run(ctx, inbound)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not stop on cancel")
	}
}

func TestEventLoop_DifferentConversations(t *testing.T) {
	f := setupRouter(t, "")
	loop := NewEventLoop(f.router, zerolog.Nop())

	inbound := make(chan gateway.InboundMessage)
	done := make(chan struct{})
	go func() {
		loop.Run(context.Background(), inbound)
		close(done)
	}()

	inbound <- imageMsg("U1", "sticker lots", []byte("s"))
	inbound <- imageMsg("U2", "sticker lots", []byte("s"))
	inbound <- imageMsg("U1", "", []byte("a"))
	inbound <- imageMsg("U2", "", []byte("b"))
	inbound <- imageMsg("U1", "end", []byte("last-1"))
	inbound <- imageMsg("U2", "end", []byte("last-2"))
	close(inbound)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not stop")
	}

	require.Len(t, f.batches.batches, 2)
	for _, batch := range f.batches.batches {
		assert.Len(t, batch, 2)
	}
}
