package eviction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(p Policy) []string {
	var out []string
	for {
		k, ok := p.SelectVictim()
		if !ok {
			return out
		}
		out = append(out, k)
	}
}

func TestNew(t *testing.T) {
	for _, typ := range []Type{LRU, LFU, FIFO, TTL} {
		p, err := New(typ)
		require.NoError(t, err, typ)
		require.NotNil(t, p)
	}

	_, err := New("random")
	require.Error(t, err)
}

func TestLRU_VictimIsLeastRecentlyUsed(t *testing.T) {
	p := NewLRU()
	p.OnAdmit("a")
	p.OnAdmit("b")
	p.OnAdmit("c")
	p.OnAccess("a")

	assert.Equal(t, []string{"b", "c", "a"}, drain(p))
	assert.Equal(t, 0, p.Len())
}

func TestLRU_OnRemove(t *testing.T) {
	p := NewLRU()
	p.OnAdmit("a")
	p.OnAdmit("b")
	p.OnRemove("a")
	p.OnRemove("missing")

	assert.Equal(t, []string{"b"}, drain(p))
}

func TestFIFO_IgnoresAccess(t *testing.T) {
	p := NewFIFO()
	p.OnAdmit("a")
	p.OnAdmit("b")
	p.OnAccess("a")
	p.OnAdmit("a")

	assert.Equal(t, []string{"a", "b"}, drain(p))
}

func TestLFU_VictimIsLeastFrequent(t *testing.T) {
	p := NewLFU()
	p.OnAdmit("a")
	p.OnAdmit("b")
	p.OnAdmit("c")
	p.OnAccess("a")
	p.OnAccess("a")
	p.OnAccess("c")

	assert.Equal(t, []string{"b", "c", "a"}, drain(p))
}

func TestLFU_TiesBrokenByAge(t *testing.T) {
	p := NewLFU()
	p.OnAdmit("a")
	p.OnAdmit("b")
	p.OnAccess("a")
	p.OnAccess("b")

	k, ok := p.SelectVictim()
	require.True(t, ok)
	assert.Equal(t, "a", k)
}

func TestLFU_MinFrequencyFollowsAccess(t *testing.T) {
	p := NewLFU()
	p.OnAdmit("hot")
	for range 5 {
		p.OnAccess("hot")
	}
	p.OnAdmit("cold")
	p.OnAccess("cold")
	p.OnRemove("hot")

	k, ok := p.SelectVictim()
	require.True(t, ok)
	assert.Equal(t, "cold", k)

	_, ok = p.SelectVictim()
	assert.False(t, ok)
}

func TestTTLOnly_NeverSelects(t *testing.T) {
	p := NewTTLOnly()
	p.OnAdmit("a")
	_, ok := p.SelectVictim()
	assert.False(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestReset(t *testing.T) {
	for _, p := range []Policy{NewLRU(), NewLFU(), NewFIFO(), NewTTLOnly()} {
		p.OnAdmit("a")
		p.OnAdmit("b")
		p.Reset()
		assert.Equal(t, 0, p.Len())
		_, ok := p.SelectVictim()
		assert.False(t, ok)
	}
}
