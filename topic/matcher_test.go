package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchExact(t *testing.T) {
	assert.True(t, Match([]byte("a/b/c"), []byte("a/b/c")))
	assert.False(t, Match([]byte("a/b/c"), []byte("a/b/d")))
}

func TestMatchSingleLevelWildcard(t *testing.T) {
	assert.True(t, Match([]byte("a/+/c"), []byte("a/b/c")))
	assert.False(t, Match([]byte("a/+/c"), []byte("a/b/b/c")))
}

func TestMatchMultiLevelWildcard(t *testing.T) {
	assert.True(t, Match([]byte("a/#"), []byte("a/b/c")))
	assert.True(t, Match([]byte("a/#"), []byte("a")))
	assert.False(t, Match([]byte("a/#"), []byte("b/c")))
}

func TestMatchDollarTopicsExcludedFromWildcards(t *testing.T) {
	assert.False(t, Match([]byte("#"), []byte("$SYS/broker/uptime")))
	assert.False(t, Match([]byte("+/broker"), []byte("$SYS/broker")))
	assert.True(t, Match([]byte("$SYS/broker/uptime"), []byte("$SYS/broker/uptime")))
}

func TestMatchTopLevelWildcardAlone(t *testing.T) {
	assert.True(t, Match([]byte("#"), []byte("a/b/c")))
}
