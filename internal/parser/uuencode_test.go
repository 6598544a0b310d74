package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUUDecodeClassicExample(t *testing.T) {
	// "Cat" uuencoded: classic textbook example.
	encoded := "begin 644 cat.txt\n#0V%T\n`\nend\n"
	name, data, err := uuDecode([]byte(encoded))
	require.NoError(t, err)
	require.Equal(t, "cat.txt", name)
	require.Equal(t, "Cat", string(data))
}

func TestLooksLikeUUHeader(t *testing.T) {
	require.True(t, looksLikeUUHeader([]byte("begin 644 file.bin\ndata")))
	require.False(t, looksLikeUUHeader([]byte("beginning of something")))
	require.False(t, looksLikeUUHeader([]byte("not uuencoded")))
}

func TestStripPDFWrapper(t *testing.T) {
	wrapped := []byte("<PDF>%PDF-1.4 fake content</PDF>")
	got := stripPDFWrapper(wrapped)
	require.Equal(t, "%PDF-1.4 fake content", string(got))

	unwrapped := []byte("%PDF-1.4 no wrapper")
	require.Equal(t, unwrapped, stripPDFWrapper(unwrapped))
}
