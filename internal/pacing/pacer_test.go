package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_UnpacedReturnsImmediately(t *testing.T) {
	p := NewPacer(0)
	assert.Equal(t, 0.0, p.Rate())

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewPacer(0).Wait(ctx), context.Canceled)
	assert.Error(t, NewPacer(1).Wait(ctx))
}

func TestPacer_SpacesTicks(t *testing.T) {
	p := NewPacer(50) // one tick every 20ms
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// The first token is available immediately; three more need ~60ms.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPacer_SetRate(t *testing.T) {
	p := NewPacer(10)
	assert.Equal(t, 10.0, p.Rate())

	p.SetRate(20)
	assert.Equal(t, 20.0, p.Rate())

	p.SetRate(-1)
	assert.Equal(t, 0.0, p.Rate())
	assert.NoError(t, p.Wait(context.Background()))
}

func TestPacer_NilNeverBlocks(t *testing.T) {
	var p *Pacer
	assert.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}
