// Package worker provides the goroutine-lifecycle mixin embedded by
// the Reactor (the worker pool tracks its goroutines with a plain
// sync.WaitGroup instead). Embed Worker, spawn tracked goroutines with
// Go, and block on HaltCh to notice a halt request.
package worker

import "sync"

// Worker tracks a set of goroutines spawned with Go and lets any of
// them (or an external caller) request that the whole set halt.
type Worker struct {
	haltOnce sync.Once
	haltedCh chan interface{}
	haltWg   sync.WaitGroup
}

func (w *Worker) lazyInit() {
	if w.haltedCh == nil {
		w.haltedCh = make(chan interface{})
	}
}

// Go spawns fn as a tracked goroutine. Halt will not return until fn
// has returned.
func (w *Worker) Go(fn func()) {
	w.lazyInit()
	w.haltWg.Add(1)
	go func() {
		defer w.haltWg.Done()
		fn()
	}()
}

// HaltCh returns the channel that is closed when a halt has been
// requested. Goroutines spawned with Go should select on this
// alongside whatever else they block on.
func (w *Worker) HaltCh() chan interface{} {
	w.lazyInit()
	return w.haltedCh
}

// Halt requests that all tracked goroutines stop, and blocks until
// every goroutine spawned with Go has returned. It is safe to call
// more than once; only the first call has effect.
func (w *Worker) Halt() {
	w.lazyInit()
	w.haltOnce.Do(func() {
		close(w.haltedCh)
	})
	w.haltWg.Wait()
}
