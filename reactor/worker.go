package reactor

import (
	"bytes"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	logging "gopkg.in/op/go-logging.v1"

	"github.com/sphinxmux/nbrpc/processor"
	"github.com/sphinxmux/nbrpc/protocol"
	"github.com/sphinxmux/nbrpc/queue"
)

// workerPool is the fixed set of goroutines described in SPEC_FULL.md
// §6.2: each loops on the shared work queue, building an
// input/output protocol pair per frame and invoking the processor,
// never letting a processor error or panic escape.
type workerPool struct {
	n    int
	wq   *queue.Queue[workItem]
	proc processor.Processor
	tf   protocol.TransportFactory
	pf   protocol.ProtocolFactory
	log  *logging.Logger

	wg sync.WaitGroup
}

func newWorkerPool(n int, wq *queue.Queue[workItem], proc processor.Processor, tf protocol.TransportFactory, pf protocol.ProtocolFactory, log *logging.Logger) *workerPool {
	return &workerPool{n: n, wq: wq, proc: proc, tf: tf, pf: pf, log: log}
}

func (p *workerPool) start() {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.loop(i)
	}
}

func (p *workerPool) loop(id int) {
	defer p.wg.Done()
	for {
		item, ok := p.wq.Pop()
		if !ok || item.shutdown {
			return
		}
		p.processSafely(id, item)
	}
}

// processSafely wraps one frame's dispatch in a recover so that a
// panicking processor never takes a worker goroutine down with it;
// the defer lives inside the per-item call, not around the loop, so
// the worker resumes dequeuing after a recovered panic
// (SPEC_FULL.md §6.2 step 4).
func (p *workerPool) processSafely(id int, item workItem) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("worker %d: recovered panic dispatching frame: %v\n%s", id, r, debug.Stack())
		}
	}()
	if err := p.dispatch(item); err != nil {
		p.log.Errorf("worker %d: processor error: %v\n%s", id, err, debug.Stack())
	}
}

func (p *workerPool) dispatch(item workItem) error {
	outTransport, err := p.tf.GetTransport(item.conn)
	if err != nil {
		return fmt.Errorf("worker: output transport: %w", err)
	}
	outProtocol, err := p.pf.GetProtocol(outTransport)
	if err != nil {
		return fmt.Errorf("worker: output protocol: %w", err)
	}

	inTransport, err := p.tf.GetTransport(&byteSource{bytes.NewReader(item.payload)})
	if err != nil {
		return fmt.Errorf("worker: input transport: %w", err)
	}
	inProtocol, err := p.pf.GetProtocol(inTransport)
	if err != nil {
		return fmt.Errorf("worker: input protocol: %w", err)
	}

	return p.proc.Process(inProtocol, outProtocol)
}

// join waits for every worker goroutine to return, subject to the
// aggregate drain timeout (SPEC_FULL.md REDESIGN FLAG 2: a
// non-positive timeout skips waiting entirely rather than waiting
// forever). Go offers no safe way to forcibly kill a goroutine still
// running processor code; "forced termination" here means the
// Reactor stops waiting on it and returns, not that the goroutine is
// actually destroyed — see DESIGN.md.
func (p *workerPool) join(timeoutSeconds float64) {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	if timeoutSeconds <= 0 {
		select {
		case <-done:
		default:
			p.log.Warningf("shutdown: timeout<=0, not waiting for %d worker(s) to drain", p.n)
		}
		return
	}

	select {
	case <-done:
	case <-time.After(time.Duration(timeoutSeconds * float64(time.Second))):
		p.log.Warningf("shutdown: drain timeout of %.3fs exceeded, abandoning in-flight worker(s)", timeoutSeconds)
	}
}

// byteSource adapts a bytes.Reader into the io.ReadWriter a
// TransportFactory expects; writes are rejected since an input
// transport built over a frame payload is never written to.
type byteSource struct {
	*bytes.Reader
}

func (*byteSource) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("worker: input transport is read-only")
}
