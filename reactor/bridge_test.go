package reactor

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pipeRWC struct {
	r io.Reader
	w bytes.Buffer
}

func (p *pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeRWC) Close() error                { return nil }

func waitReadable(t *testing.T, b *Bridge) {
	t.Helper()
	select {
	case <-b.Readable():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Bridge.Readable")
	}
}

func TestBridgeBuffersAndDelivers(t *testing.T) {
	raw := &pipeRWC{r: bytes.NewReader([]byte("staged bytes"))}
	b := NewBridge(raw)
	defer b.Close()

	waitReadable(t, b)

	got := make([]byte, 64)
	var all []byte
	for {
		n, err := b.Read(got)
		all = append(all, got[:n]...)
		if err == ErrWouldBlock {
			break
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, "staged bytes", string(all))
}

func TestBridgeReadWouldBlockWhenEmpty(t *testing.T) {
	raw := &pipeRWC{r: blockingReader{}}
	b := NewBridge(raw)
	defer b.Close()

	_, err := b.Read(make([]byte, 8))
	require.Equal(t, ErrWouldBlock, err)
}

func TestBridgeWritePassesThrough(t *testing.T) {
	raw := &pipeRWC{r: blockingReader{}}
	b := NewBridge(raw)
	defer b.Close()

	_, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "hello", raw.w.String())
}

func TestBridgeCloseIsIdempotentAndSignalsDone(t *testing.T) {
	raw := &pipeRWC{r: blockingReader{}}
	b := NewBridge(raw)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	select {
	case <-b.Done():
	default:
		t.Fatal("Done channel should be closed after Close")
	}
}

// blockingReader never returns, simulating a live connection with no
// data yet available; tests relying on it must close the Bridge
// themselves rather than waiting on the pump to exit.
type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	select {}
}
