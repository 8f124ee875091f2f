package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfoCounter(t *testing.T) {
	info := "# Stats\r\n" +
		"total_connections_received:5\r\n" +
		"keyspace_hits:1024\r\n" +
		"keyspace_misses:256\r\n"

	hits, ok := parseInfoCounter(info, "keyspace_hits")
	assert.True(t, ok)
	assert.Equal(t, int64(1024), hits)

	misses, ok := parseInfoCounter(info, "keyspace_misses")
	assert.True(t, ok)
	assert.Equal(t, int64(256), misses)
}

func TestParseInfoCounter_MissingField(t *testing.T) {
	_, ok := parseInfoCounter("# Stats\r\nuptime_in_seconds:1\r\n", "keyspace_hits")
	assert.False(t, ok)
}

func TestParseInfoCounter_Malformed(t *testing.T) {
	_, ok := parseInfoCounter("keyspace_hits:not-a-number\r\n", "keyspace_hits")
	assert.False(t, ok)
}
