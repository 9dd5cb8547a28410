package keymap

// Display names of the layers as shown by the monitor.
var layerNames = [LayerCount]string{
	Base:       "英文層",
	BaseFn:     "英文層（FN）",
	Phonetic:   "注音層",
	PhoneticFn: "注音層（FN）",
}

// DisplayName returns the localized name of l.
func (l Layer) DisplayName() string {
	if !l.Valid() {
		return l.String()
	}
	return layerNames[l]
}

// Label returns what a key at p produces on layer l, for display.
// Special positions come first, then combos, then the table.
func Label(l Layer, p KeyPosition) string {
	switch p {
	case PosFn:
		return "FN"
	case PosLayer:
		return "LAYER"
	case PosMouseLeft:
		return "MOUSE L"
	case PosMouseRight:
		return "MOUSE R"
	}
	if c, ok := LookupCombo(l, p); ok {
		return c.String()
	}
	code := Lookup(l, p)
	switch code.Kind() {
	case KindCode:
		return code.String()
	case KindReserved:
		return "·"
	}
	return ""
}
