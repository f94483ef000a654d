package reactor

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	writes  [][]byte
	closed  bool
	readErr error
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return 0, ErrWouldBlock
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), p...)
	f.writes = append(f.writes, cp)
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestWrapConnectionIsIdempotent(t *testing.T) {
	fc := &fakeConn{}
	wrapped := wrapConnection(fc)
	twice := wrapConnection(wrapped)
	require.Same(t, wrapped, twice)
}

func TestSerializingConnSerializesWrites(t *testing.T) {
	fc := &fakeConn{}
	sc := wrapConnection(fc)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sc.Write([]byte("x"))
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, fc.writes, 50)
}

func TestSerializingConnFDFalseForPlainConn(t *testing.T) {
	fc := &fakeConn{}
	sc := wrapConnection(fc).(*serializingConn)
	_, ok := sc.fd()
	require.False(t, ok)
}

func TestConnectionCloseDelegates(t *testing.T) {
	fc := &fakeConn{}
	sc := wrapConnection(fc)
	require.NoError(t, sc.Close())
	require.True(t, fc.closed)
}

func TestReadErrorPropagates(t *testing.T) {
	fc := &fakeConn{readErr: errors.New("boom")}
	sc := wrapConnection(fc)
	_, err := sc.Read(make([]byte, 8))
	require.EqualError(t, err, "boom")
}
