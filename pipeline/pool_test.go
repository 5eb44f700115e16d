package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	iface "TreeDetServer/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestPool_Submit(t *testing.T) {
	pool := NewPool(New(&mockBackend{}, nil), 3)
	defer pool.Close()

	png := encodedImage(t, gocv.PNGFileExt, 32, 32)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := pool.Submit(context.Background(), "test", png)
			assert.NoError(t, err)
			if assert.NotNil(t, out) {
				assert.Equal(t, 32, out.Width)
			}
		}()
	}
	wg.Wait()
}

func TestPool_PanicRestartsWorker(t *testing.T) {
	restartDelay = 10 * time.Millisecond
	defer func() { restartDelay = time.Second }()

	backend := &mockBackend{panics: true}
	pool := NewPool(New(backend, nil), 1)
	defer pool.Close()

	png := encodedImage(t, gocv.PNGFileExt, 16, 16)
	_, err := pool.Submit(context.Background(), "test", png)
	assert.ErrorContains(t, err, "panic")

	backend.panics = false
	backend.dets = []iface.Detection{{Box: iface.NewBox(1, 1, 8, 8), Class: 0}}
	out, err := pool.Submit(context.Background(), "test", png)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}

func TestPool_Cancelled(t *testing.T) {
	pool := NewPool(New(&mockBackend{}, nil), 1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pool.Submit(ctx, "test", []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_Closed(t *testing.T) {
	pool := NewPool(New(&mockBackend{}, nil), 2)
	pool.Close()
	pool.Close()

	_, err := pool.Submit(context.Background(), "test", []byte{1})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
