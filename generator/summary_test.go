package generator

import (
	"bytes"
	"testing"

	"github.com/8090Lambert/tree-new-bee/protocol"
	"github.com/8090Lambert/tree-new-bee/rdb"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	s := NewSummary()
	require.NoError(t, s.Entry(entry("short", rdb.Raw("ab"))))
	require.NoError(t, s.Entry(entry("long", rdb.Raw("abcdef"))))
	require.NoError(t, s.Entry(entry("list", rdb.List{[]byte("x"), []byte("y"), []byte("z")})))
	require.NoError(t, s.Entry(entry("set", rdb.Set{[]byte("1")})))

	key, size, ok := s.Biggest(protocol.String)
	require.True(t, ok)
	assert.Equal(t, "long", key)
	assert.Equal(t, uint64(6), size)

	key, size, ok = s.Biggest(protocol.List)
	require.True(t, ok)
	assert.Equal(t, "list", key)
	assert.Equal(t, uint64(3), size)

	_, _, ok = s.Biggest(protocol.Hash)
	assert.False(t, ok)
	assert.Equal(t, uint64(4), s.KeysCount)
	assert.Equal(t, uint64(5+4+4+3), s.KeysSize)
}

func TestSummaryRender(t *testing.T) {
	color.NoColor = true
	s := NewSummary()
	require.NoError(t, s.Entry(entry("k", rdb.Hash{{Field: []byte("f"), Value: []byte("v")}})))
	require.NoError(t, s.Entry(entry("s", rdb.Raw("hello"))))

	var out bytes.Buffer
	s.Render(&out)
	text := out.String()
	assert.Contains(t, text, "Sampled 2 keys in the keyspace!")
	assert.Contains(t, text, "Biggest string found 's' has 5 bytes")
	assert.Contains(t, text, "Biggest   hash found 'k' has 1 fields")
	assert.Contains(t, text, "1 hash with 1 fields")
	assert.NotContains(t, text, "sortedset")
}
