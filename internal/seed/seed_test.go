package seed

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_IsValidAndNewestFirst(t *testing.T) {
	f := Sample{}.Posts()
	require.NotEmpty(t, f)
	require.NoError(t, f.Validate())
	for i := 1; i < len(f); i++ {
		assert.True(t, f[i-1].CreatedAt.After(f[i].CreatedAt), "post %d out of order", i)
	}
}

func TestSample_ReturnsFreshCopies(t *testing.T) {
	a := Sample{}.Posts()
	a[0].Comments[0].Content = "mutated"
	b := Sample{}.Posts()
	assert.NotEqual(t, "mutated", b[0].Comments[0].Content)
}

func TestFake_Deterministic(t *testing.T) {
	a := Fake{Count: 12, Seed: 42}.Posts()
	b := Fake{Count: 12, Seed: 42}.Posts()
	require.Len(t, a, 12)
	require.NoError(t, a.Validate())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different data:\n%s", diff)
	}
	for i := 1; i < len(a); i++ {
		assert.True(t, a[i-1].CreatedAt.After(a[i].CreatedAt))
	}

	c := Fake{Count: 12, Seed: 7}.Posts()
	assert.NotEqual(t, a[0].ID, c[0].ID)
}

func TestFake_Zero(t *testing.T) {
	assert.Empty(t, Fake{}.Posts())
}
