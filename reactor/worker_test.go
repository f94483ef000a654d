package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/sphinxmux/nbrpc/processor"
	"github.com/sphinxmux/nbrpc/protocol"
	"github.com/sphinxmux/nbrpc/queue"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.MustGetLogger("reactor-test")
}

type panickyProcessor struct{}

func (panickyProcessor) Process(in protocol.Protocol, out protocol.Protocol) error {
	panic("processor exploded")
}

func TestProcessSafelyRecoversPanic(t *testing.T) {
	wq := queue.New[workItem](4)
	tf, pf, err := protocol.ByKind("cbor")
	require.NoError(t, err)
	pool := newWorkerPool(1, wq, panickyProcessor{}, tf, pf, testLogger(t))

	fc := &fakeConn{}
	item := workItem{conn: wrapConnection(fc), payload: []byte{0xa1}}

	require.NotPanics(t, func() {
		pool.processSafely(0, item)
	})
}

func TestWorkerPoolDispatchesEchoAndStops(t *testing.T) {
	wq := queue.New[workItem](4)
	tf, pf, err := protocol.ByKind("cbor")
	require.NoError(t, err)
	pool := newWorkerPool(2, wq, processor.Echo{}, tf, pf, testLogger(t))
	pool.start()

	fc := &fakeConn{}
	payload := []byte("ping")
	var buf []byte
	transport, err := tf.GetTransport(&byteSliceWriter{&buf})
	require.NoError(t, err)
	p, err := pf.GetProtocol(transport)
	require.NoError(t, err)
	require.NoError(t, p.Encode(&payload))

	wq.Push(workItem{conn: wrapConnection(fc), payload: buf})

	require.Eventually(t, func() bool {
		fc.mu.Lock()
		defer fc.mu.Unlock()
		return len(fc.writes) == 1
	}, time.Second, 10*time.Millisecond)

	wq.Push(workItem{shutdown: true})
	wq.Push(workItem{shutdown: true})

	done := make(chan struct{})
	go func() {
		pool.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("workers did not stop after shutdown sentinels")
	}
}

type byteSliceWriter struct {
	buf *[]byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func (w *byteSliceWriter) Read(p []byte) (int, error) {
	n := copy(p, *w.buf)
	*w.buf = (*w.buf)[n:]
	if n == 0 {
		return 0, nil
	}
	return n, nil
}
