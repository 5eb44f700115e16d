package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"TreeDetServer/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var restartDelay = time.Second

type job struct {
	ctx       context.Context
	transport string
	data      []byte
	result    chan jobResult
}

type jobResult struct {
	out *Output
	err error
}

// Pool runs a Pipeline on a fixed number of worker goroutines fed by a job
// queue. A worker that panics fails its current job and is restarted.
type Pool struct {
	p         *Pipeline
	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewPool(p *Pipeline, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	pl := &Pool{
		p:    p,
		jobs: make(chan job, workers),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		pl.wg.Add(1)
		go pl.runWorker(i)
	}
	return pl
}

func (pl *Pool) Pipeline() *Pipeline {
	return pl.p
}

// Submit queues data and waits for its result, ctx cancellation, or Close.
func (pl *Pool) Submit(ctx context.Context, transport string, data []byte) (*Output, error) {
	j := job{ctx: ctx, transport: transport, data: data, result: make(chan jobResult, 1)}
	select {
	case pl.jobs <- j:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.done:
		return nil, ErrPoolClosed
	}
	select {
	case r := <-j.result:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.done:
		return nil, ErrPoolClosed
	}
}

// Close stops the workers after their current job.
func (pl *Pool) Close() {
	pl.closeOnce.Do(func() { close(pl.done) })
	pl.wg.Wait()
}

func (pl *Pool) runWorker(workerID int) {
	log := logger.Named(logger.Pool).With(zap.Int("worker", workerID))
	var current *job
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker panic, restarting", zap.Any("panic", r), zap.Duration("delay", restartDelay))
			if current != nil {
				current.result <- jobResult{err: errors.Errorf("worker %d panic: %v", workerID, r)}
			}
			time.Sleep(restartDelay)
			pl.wg.Add(1)
			go pl.runWorker(workerID)
		}
		pl.wg.Done()
	}()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	log.Debug("worker created")

	for {
		select {
		case <-pl.done:
			return
		case j := <-pl.jobs:
			current = &j
			if err := j.ctx.Err(); err != nil {
				j.result <- jobResult{err: err}
			} else {
				out, err := pl.p.Run(j.ctx, j.transport, j.data)
				j.result <- jobResult{out: out, err: err}
			}
			current = nil
		}
	}
}
