package reactor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeExtractFrameRoundTrip(t *testing.T) {
	payload := []byte("hello, frame")
	framed := encodeFrame(payload)

	got, rest, ok := extractFrame(framed)
	require.True(t, ok)
	require.Equal(t, payload, got)
	require.Empty(t, rest)
}

func TestExtractFrameIncomplete(t *testing.T) {
	framed := encodeFrame([]byte("abcdef"))
	_, _, ok := extractFrame(framed[:frameHeaderSize+2])
	require.False(t, ok)
}

func TestExtractFrameMissingHeader(t *testing.T) {
	_, _, ok := extractFrame([]byte{0, 1})
	require.False(t, ok)
}

func TestDrainFramesExhaustsMultipleFrames(t *testing.T) {
	var buf []byte
	buf = append(buf, encodeFrame([]byte("one"))...)
	buf = append(buf, encodeFrame([]byte("two"))...)
	buf = append(buf, encodeFrame([]byte("three"))...)
	// a fourth, partial frame that must survive in rest
	buf = append(buf, []byte{0, 0, 0, 10, 'p', 'a', 'r', 't'}...)

	var got [][]byte
	rest := drainFrames(buf, func(payload []byte) {
		cp := append([]byte(nil), payload...)
		got = append(got, cp)
	})

	require.Len(t, got, 3)
	require.Equal(t, "one", string(got[0]))
	require.Equal(t, "two", string(got[1]))
	require.Equal(t, "three", string(got[2]))
	require.Equal(t, []byte{0, 0, 0, 10, 'p', 'a', 'r', 't'}, rest)
}

func TestDrainFramesNoCompleteFrame(t *testing.T) {
	buf := []byte{0, 0, 0, 5, 'a', 'b'}
	called := false
	rest := drainFrames(buf, func([]byte) { called = true })
	require.False(t, called)
	require.Equal(t, buf, rest)
}

func TestEncodeFrameHeader(t *testing.T) {
	framed := encodeFrame([]byte("xyz"))
	require.Equal(t, uint32(3), binary.BigEndian.Uint32(framed[:frameHeaderSize]))
}
