package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupComboPhoneticFn(t *testing.T) {
	c, ok := LookupCombo(PhoneticFn, PosLBracket)
	require.True(t, ok)
	assert.Equal(t, Combo{Modifier: KeyLeftCtrl, Key: KeyLeftBrace}, c)

	c, ok = LookupCombo(PhoneticFn, PosHashtag)
	require.True(t, ok)
	assert.Equal(t, Combo{Modifier: KeyLeftShift, Key: Key3}, c)

	c, ok = LookupCombo(PhoneticFn, PosCtrl)
	require.True(t, ok)
	assert.Equal(t, "WIN+SPACE", c.String())
}

func TestLookupComboOnlyOnFnLayers(t *testing.T) {
	for _, l := range []Layer{Base, Phonetic} {
		for p := KeyPosition(0); p < PositionCount; p++ {
			_, ok := LookupCombo(l, p)
			assert.False(t, ok, "unexpected combo on %s/%d", l, p)
		}
	}

	_, ok := LookupCombo(BaseFn, PosLBracket)
	assert.False(t, ok)

	c, ok := LookupCombo(BaseFn, PosCtrl)
	require.True(t, ok)
	assert.Equal(t, Combo{Modifier: KeyLeftGUI, Key: KeySpace}, c)
}

func TestCombosOrdered(t *testing.T) {
	all := Combos()
	require.Len(t, all, 13)

	assert.Equal(t, BaseFn, all[0].Layer)
	assert.Equal(t, PosCtrl, all[0].Position)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		less := prev.Layer < cur.Layer || (prev.Layer == cur.Layer && prev.Position < cur.Position)
		assert.True(t, less, "entries %d and %d out of order", i-1, i)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "FN", Label(Phonetic, PosFn))
	assert.Equal(t, "LAYER", Label(Base, PosLayer))
	assert.Equal(t, "MOUSE L", Label(Base, PosMouseLeft))
	assert.Equal(t, "CTRL+[", Label(PhoneticFn, PosLBracket))
	assert.Equal(t, "SHIFT+=", Label(PhoneticFn, PosPlus))
	assert.Equal(t, "D", Label(Base, 36))
	assert.Equal(t, "", Label(Base, 0))
	assert.Equal(t, "注音層", Phonetic.DisplayName())
}
