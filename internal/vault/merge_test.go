package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

func sampleTree() model.AccountTree {
	return model.AccountTree{
		{Mnemonic: "one two three", Seed: model.HexBytes{1, 2}, Names: []string{"default"}},
		{Mnemonic: "four five six", Seed: model.HexBytes{3, 4}, Names: []string{"savings"}},
	}
}

func TestMergePreservesAbsentFields(t *testing.T) {
	current := sampleTree()
	patch := model.TreePatch{1: {Names: []string{"savings", "payer"}}}

	got, err := Merge(current, patch)
	require.NoError(t, err)

	assert.Equal(t, current[0], got[0])
	assert.Equal(t, "four five six", got[1].Mnemonic)
	assert.Equal(t, model.HexBytes{3, 4}, got[1].Seed)
	assert.Equal(t, []string{"savings", "payer"}, got[1].Names)

	// input untouched
	assert.Equal(t, []string{"savings"}, current[1].Names)
}

func TestMergeOverwritesPresentFields(t *testing.T) {
	m := "seven eight nine"
	got, err := Merge(sampleTree(), model.TreePatch{0: {Mnemonic: &m, Seed: model.HexBytes{9}}})
	require.NoError(t, err)

	assert.Equal(t, m, got[0].Mnemonic)
	assert.Equal(t, model.HexBytes{9}, got[0].Seed)
	assert.Equal(t, []string{"default"}, got[0].Names)
}

func TestMergeEmptyNamesClears(t *testing.T) {
	got, err := Merge(sampleTree(), model.TreePatch{0: {Names: []string{}}})
	require.NoError(t, err)
	assert.Empty(t, got[0].Names)
	assert.NotNil(t, got[0].Names)
}

func TestMergeAppends(t *testing.T) {
	m := "ten eleven twelve"
	got, err := Merge(sampleTree(), model.TreePatch{2: {Mnemonic: &m, Seed: model.HexBytes{5}, Names: []string{"cold"}}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.Account{Mnemonic: m, Seed: model.HexBytes{5}, Names: []string{"cold"}}, got[2])

	got, err = Merge(nil, model.TreePatch{0: {Mnemonic: &m, Seed: model.HexBytes{5}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{}, got[0].Names)
}

func TestMergeRejectsBadIndexes(t *testing.T) {
	m := "x"
	_, err := Merge(sampleTree(), model.TreePatch{3: {Mnemonic: &m, Seed: model.HexBytes{1}}})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = Merge(sampleTree(), model.TreePatch{-1: {Names: []string{"a"}}})
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = Merge(sampleTree(), model.TreePatch{2: {Names: []string{"no secrets"}}})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestMergeEmptyPatch(t *testing.T) {
	current := sampleTree()
	got, err := Merge(current, nil)
	require.NoError(t, err)
	assert.Equal(t, current, got)
}

func TestAddNamePatch(t *testing.T) {
	tree := sampleTree()
	got, err := Merge(tree, model.AddNamePatch(tree, 0, "payer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "payer"}, got[0].Names)
	assert.Equal(t, tree[0].Mnemonic, got[0].Mnemonic)
}
