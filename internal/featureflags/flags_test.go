package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Switches(t *testing.T) {
	s := Parse("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, s.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, s.Enabled(name, 1), name)
	}
}

func TestEnabled_Rollout(t *testing.T) {
	s := Parse("always=100%,never=0%,canary=25%,over=150%")

	assert.True(t, s.Enabled("always", 7))
	assert.True(t, s.On("always"))
	assert.True(t, s.On("over"), "percentages clamp to 100")
	assert.False(t, s.Enabled("never", 7))
	assert.False(t, s.Enabled("canary", 0), "anonymous users stay out of partial rollouts")
	assert.False(t, s.On("canary"))

	first := s.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Enabled("canary", 42))
	}

	hits := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if s.Enabled("canary", uid) {
			hits++
		}
	}
	assert.InDelta(t, 250, hits, 80)
}

func TestParse_SkipsMalformed(t *testing.T) {
	s := Parse(" bad ,X=on, y = 20% ,z=off,w=maybe,=on ")

	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off"}, s.Raw())
	assert.Equal(t, []string{"x", "y", "z"}, s.Names())
	assert.Len(t, s.Snapshot(123), 3)
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.On(DomainEvents))
	assert.Empty(t, s.Snapshot(1))
	assert.Empty(t, s.Raw())
}
