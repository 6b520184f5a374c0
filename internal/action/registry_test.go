package action

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickNoneEnabled(t *testing.T) {
	r := Default()
	a, ok := r.Pick(rand.New(rand.NewPCG(1, 1)))
	assert.False(t, ok)
	assert.Nil(t, a)
}

func TestPickOnlyEnabled(t *testing.T) {
	r := Default()
	require.NoError(t, r.Enable([]string{NamePing, NameDeploy}))
	assert.Equal(t, []string{NamePing, NameDeploy}, r.EnabledNames())

	rng := rand.New(rand.NewPCG(7, 7))
	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		a, ok := r.Pick(rng)
		require.True(t, ok)
		counts[a.Name()]++
	}
	assert.Len(t, counts, 2)
	assert.InDelta(t, 1000, counts[NamePing], 150)
	assert.InDelta(t, 1000, counts[NameDeploy], 150)
}

func TestPickIsReproducible(t *testing.T) {
	r := Default()
	require.NoError(t, r.Enable([]string{NamePing, NameApprove, NameMint, NameDeploy, NameBridge}))
	seq := func() []string {
		rng := rand.New(rand.NewPCG(42, 0))
		var out []string
		for i := 0; i < 20; i++ {
			a, _ := r.Pick(rng)
			out = append(out, a.Name())
		}
		return out
	}
	assert.Equal(t, seq(), seq())
}

func TestEnableRejectsUnknown(t *testing.T) {
	r := Default()
	require.NoError(t, r.Enable([]string{NamePing}))
	err := r.Enable([]string{NameMint, "teleport"})
	require.Error(t, err)
	assert.Equal(t, []string{NamePing}, r.EnabledNames(), "failed Enable changes nothing")

	require.NoError(t, r.SetEnabled(NameBridge, true))
	assert.Equal(t, []string{NamePing, NameBridge}, r.EnabledNames())
	assert.Error(t, r.SetEnabled("teleport", true))
}
