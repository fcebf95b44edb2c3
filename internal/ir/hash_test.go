package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputHashDeterministic(t *testing.T) {
	mk := func() *Output {
		return &Output{
			Source:     "x = 1;\n",
			MaxLevel:   2,
			Conditions: []Condition{{Name: "c", JCond: JCond{Expression: "e", Code: 2}}},
		}
	}
	h1, err := OutputHash(mk())
	require.NoError(t, err)
	h2, err := OutputHash(mk())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestOutputHashChangesWithContent(t *testing.T) {
	a := &Output{Source: "a"}
	b := &Output{Source: "b"}
	assert.NotEqual(t, MustOutputHash(a), MustOutputHash(b))
}

func TestHashDomainSeparation(t *testing.T) {
	c := JCond{Expression: "true"}
	jh, err := JCondHash(c)
	require.NoError(t, err)
	oh, err := OutputHash(&Output{})
	require.NoError(t, err)
	assert.NotEqual(t, jh, oh)
	assert.NotEqual(t, hashWithDomain(DomainOutput, []byte("x")), hashWithDomain(DomainJCond, []byte("x")))
}

func TestJCondHashTracksDescriptor(t *testing.T) {
	a := JCond{Expression: "jsys.type == \"fog\"", Code: TierFog}
	b := a
	b.Code = TierCloud
	assert.Equal(t, MustJCondHash(a), MustJCondHash(a))
	assert.NotEqual(t, MustJCondHash(a), MustJCondHash(b))
}
