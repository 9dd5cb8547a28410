package keymap

import "sort"

// Combo is a modifier+key chord emitted in place of a table lookup.
type Combo struct {
	Modifier Usage
	Key      Usage
}

func (c Combo) String() string {
	return comboModifierName(c.Modifier) + "+" + comboKeyName(c.Key)
}

// ComboEntry is one registry row, used when iterating.
type ComboEntry struct {
	Layer    Layer
	Position KeyPosition
	Combo    Combo
}

type comboKey struct {
	layer Layer
	pos   KeyPosition
}

var combos = map[comboKey]Combo{
	{PhoneticFn, PosLBracket}:  {KeyLeftCtrl, KeyLeftBrace},
	{PhoneticFn, PosRBracket}:  {KeyLeftCtrl, KeyRightBrace},
	{PhoneticFn, PosHashtag}:   {KeyLeftShift, Key3},
	{PhoneticFn, PosAmpersand}: {KeyLeftShift, Key7},
	{PhoneticFn, PosAsterisk}:  {KeyLeftShift, Key8},
	{PhoneticFn, PosPlus}:      {KeyLeftShift, KeyEqual},
	{PhoneticFn, PosCaret}:     {KeyLeftShift, Key6},
	{PhoneticFn, PosSemicolon}: {KeyLeftCtrl, KeySemicolon},
	{PhoneticFn, PosQuote}:     {KeyLeftCtrl, KeyQuote},
	{PhoneticFn, PosComma}:     {KeyLeftCtrl, KeyComma},
	{PhoneticFn, PosPeriod}:    {KeyLeftCtrl, KeyPeriod},
	{PhoneticFn, PosCtrl}:      {KeyLeftGUI, KeySpace},

	// Win+Space (input method switch) is reachable from both Fn layers.
	{BaseFn, PosCtrl}: {KeyLeftGUI, KeySpace},
}

// LookupCombo returns the combo registered for (l, p), if any.
func LookupCombo(l Layer, p KeyPosition) (Combo, bool) {
	c, ok := combos[comboKey{l, p}]
	return c, ok
}

// Combos returns every registry entry ordered by layer, then position.
func Combos() []ComboEntry {
	out := make([]ComboEntry, 0, len(combos))
	for k, c := range combos {
		out = append(out, ComboEntry{Layer: k.layer, Position: k.pos, Combo: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func comboModifierName(u Usage) string {
	switch u {
	case KeyLeftCtrl, KeyRightCtrl:
		return "CTRL"
	case KeyLeftShift, KeyRightShift:
		return "SHIFT"
	case KeyLeftAlt, KeyRightAlt:
		return "ALT"
	case KeyLeftGUI, KeyRightGUI:
		return "WIN"
	}
	return u.String()
}

func comboKeyName(u Usage) string {
	if u == KeyGrave {
		return "`"
	}
	return u.String()
}
