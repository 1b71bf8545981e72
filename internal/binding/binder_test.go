package binding

import (
	"errors"
	"testing"

	"github.com/specialistvlad/stagegrid/internal/nodeid"
	"github.com/specialistvlad/stagegrid/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestBinder_Bind_RejectsDuplicate(t *testing.T) {
	// --- Arrange ---
	b := NewBinder()
	consumer := nodeid.New("aggregate", "main")
	require.NoError(t, b.Bind(consumer, "normalize", Literal{Value: cty.StringVal("none")}))

	// --- Act ---
	err := b.Bind(consumer, "normalize", Unresolved{})

	// --- Assert ---
	var dup *DuplicateBindingError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "normalize", dup.Target.Port)

	src, ok := b.Lookup(Target{Step: consumer, Port: "normalize"})
	require.True(t, ok)
	assert.Equal(t, Literal{Value: cty.StringVal("none")}, src, "first binding must be kept")
}

func TestBinder_Finalize(t *testing.T) {
	step := nodeid.New("aggregate", "main")
	required := Port{Target: Target{Step: step, Port: "csv"}}
	optional := Port{Target: Target{Step: step, Port: "normalize"}, Defaultable: true}

	t.Run("omitted required input is rejected", func(t *testing.T) {
		b := NewBinder()

		_, err := b.Finalize(step, []Port{required, optional}, nil)

		var missing *MissingRequiredInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "csv", missing.Target.Port)
		assert.Nil(t, missing.Via)
	})

	t.Run("explicit null on required input is rejected", func(t *testing.T) {
		b := NewBinder()
		require.NoError(t, b.Bind(step, "csv", Unresolved{}))

		_, err := b.Finalize(step, []Port{required}, nil)

		var missing *MissingRequiredInputError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, Unresolved{}, missing.Via)
	})

	t.Run("unresolved pipeline input on required port is rejected", func(t *testing.T) {
		b := NewBinder()
		require.NoError(t, b.Bind(step, "csv", FromPipelineInput{Name: "csv"}))

		_, err := b.Finalize(step, []Port{required}, map[string]value.Value{"csv": value.Unresolved()})

		var missing *MissingRequiredInputError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("defaultable input may stay unresolved", func(t *testing.T) {
		b := NewBinder()
		require.NoError(t, b.Bind(step, "csv", FromPipelineInput{Name: "csv"}))

		got, err := b.Finalize(step, []Port{required, optional}, map[string]value.Value{"csv": value.Of(cty.StringVal("a.csv"))})

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, FromPipelineInput{Name: "csv"}, got[0].Source)
		assert.Equal(t, Unresolved{}, got[1].Source)
	})

	t.Run("binding to an undeclared port is rejected", func(t *testing.T) {
		b := NewBinder()
		require.NoError(t, b.Bind(step, "typo", Literal{Value: cty.True}))

		_, err := b.Finalize(step, []Port{optional}, nil)

		var unknown *UnknownPortError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "typo", unknown.Target.Port)
	})

	t.Run("all problems are reported together", func(t *testing.T) {
		b := NewBinder()
		require.NoError(t, b.Bind(step, "typo", Literal{Value: cty.True}))

		_, err := b.Finalize(step, []Port{required}, nil)

		var missing *MissingRequiredInputError
		var unknown *UnknownPortError
		assert.True(t, errors.As(err, &missing))
		assert.True(t, errors.As(err, &unknown))
	})
}

func TestBinder_Finalize_OnlyChecksItsOwnStep(t *testing.T) {
	// --- Arrange ---
	first := nodeid.New("relay", "first")
	second := nodeid.New("relay", "second")
	b := NewBinder()
	require.NoError(t, b.Bind(first, "in", FromPipelineInput{Name: "who"}))
	require.NoError(t, b.Bind(second, "in", FromStageOutput{Ref: nodeid.PortRef{Step: first, Port: "out"}}))
	require.NoError(t, b.Bind(second, "typo", Literal{Value: cty.True}))
	inputs := map[string]value.Value{"who": value.Of(cty.StringVal("ann"))}

	// --- Act ---
	firstBindings, firstErr := b.Finalize(first, []Port{{Target: Target{Step: first, Port: "in"}}}, inputs)
	_, secondErr := b.Finalize(second, []Port{{Target: Target{Step: second, Port: "in"}}}, inputs)

	// --- Assert ---
	require.NoError(t, firstErr, "bindings of other steps are not unknown ports of this one")
	require.Len(t, firstBindings, 1)
	assert.Equal(t, FromPipelineInput{Name: "who"}, firstBindings[0].Source)

	var unknown *UnknownPortError
	require.ErrorAs(t, secondErr, &unknown)
	assert.Equal(t, Target{Step: second, Port: "typo"}, unknown.Target)
	assert.NotContains(t, secondErr.Error(), `"relay.first"`)
}
