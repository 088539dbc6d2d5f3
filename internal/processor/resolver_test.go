package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osukit/difficulty-processor/internal/processor"
	"github.com/osukit/difficulty-processor/internal/rulesets"
)

func testRegistry(t *testing.T) *rulesets.Registry {
	t.Helper()
	reg, err := rulesets.NewRegistry(
		&fakeRuleset{id: 0, name: "zero"},
		&fakeRuleset{id: 1, name: "one"},
		&fakeRuleset{id: 2, name: "two"},
		&fakeRuleset{id: 3, name: "three"},
	)
	require.NoError(t, err)
	return reg
}

func TestResolverConvertFanOut(t *testing.T) {
	r, err := processor.NewResolver(testRegistry(t), nil, true)
	require.NoError(t, err)

	units := r.Units(testBeatmap(1, 0, 10), true)
	require.Len(t, units, 4, "convert-eligible content fans out over every allowed ruleset")
	for i, u := range units {
		assert.Equal(t, i, u.RulesetID())
		assert.Equal(t, 1, u.BeatmapID())
		assert.True(t, u.Ranked)
	}
}

func TestResolverConvertFanOutRespectsAllowlist(t *testing.T) {
	r, err := processor.NewResolver(testRegistry(t), []int{0, 2}, true)
	require.NoError(t, err)

	units := r.Units(testBeatmap(1, 0, 10), false)
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].RulesetID())
	assert.Equal(t, 2, units[1].RulesetID())
}

func TestResolverConvertsDisabled(t *testing.T) {
	r, err := processor.NewResolver(testRegistry(t), nil, false)
	require.NoError(t, err)

	units := r.Units(testBeatmap(1, 0, 10), false)
	require.Len(t, units, 1, "without convert processing only the native ruleset applies")
	assert.Equal(t, 0, units[0].RulesetID())
}

func TestResolverNativeMatch(t *testing.T) {
	r, err := processor.NewResolver(testRegistry(t), nil, true)
	require.NoError(t, err)

	units := r.Units(testBeatmap(1, 2, 10), false)
	require.Len(t, units, 1, "non-convertible content never fans out")
	assert.Equal(t, 2, units[0].RulesetID())
}

func TestResolverExcludedNativeIsNoOp(t *testing.T) {
	r, err := processor.NewResolver(testRegistry(t), []int{0, 1}, true)
	require.NoError(t, err)

	units := r.Units(testBeatmap(1, 3, 10), true)
	assert.Empty(t, units)
}

func TestResolverUnknownAllowlistID(t *testing.T) {
	_, err := processor.NewResolver(testRegistry(t), []int{0, 9}, false)
	require.Error(t, err, "allowlisted id missing from the registry fails at construction")
	assert.Contains(t, err.Error(), "ruleset id 9")
}
