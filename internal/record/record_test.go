package record

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTripsEntries(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(&buf)
	require.NoError(t, err)

	entries := []Entry{
		{Kind: "call", Event: "proc_exit", Key: 0, Timestamp: time.Unix(1000, 0).UTC()},
		{Kind: "statedump_begin", Event: "statedump_begin", Key: 42, Timestamp: time.Unix(1001, 0).UTC()},
		{Kind: "statedump_end", Event: "statedump_end", Key: 42, Timestamp: time.Unix(1002, 0).UTC()},
	}

	for _, e := range entries {
		require.NoError(t, w.Write(e))
	}

	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	var got []Entry

	for {
		e, err := r.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		got = append(got, e)
	}

	assert.Equal(t, entries, got)
}

func TestReaderReturnsEOFOnEmptyStream(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestWrittenStreamIsZstdCompressed(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(Entry{Kind: "call", Event: "e", Timestamp: time.Unix(1, 0).UTC()}))
	require.NoError(t, w.Close())

	// zstd frames begin with the magic number 0x28 0xB5 0x2F 0xFD.
	magic := []byte{0x28, 0xB5, 0x2F, 0xFD}
	assert.True(t, bytes.HasPrefix(buf.Bytes(), magic))
}
