package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"onehand/internal/keymap"
)

// runKeymapSubcommand prints the compiled-in layout, one grid per layer,
// followed by the combo registry.
func runKeymapSubcommand(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("keymap", flag.ContinueOnError)
	fs.SetOutput(w)
	layer := fs.Int("layer", -1, "Only print this layer (0-3)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	layers := []keymap.Layer{keymap.Base, keymap.BaseFn, keymap.Phonetic, keymap.PhoneticFn}
	if *layer >= 0 {
		l := keymap.Layer(*layer)
		if !l.Valid() {
			return fmt.Errorf("invalid layer %d", *layer)
		}
		layers = []keymap.Layer{l}
	}

	for i, l := range layers {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := printLayerGrid(w, l); err != nil {
			return err
		}
	}

	if *layer < 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "COMBOS:")
		for _, c := range keymap.Combos() {
			fmt.Fprintf(w, "  %-12s pos %2d  %s\n", c.Layer, c.Position, c.Combo)
		}
	}
	return nil
}

func printLayerGrid(w io.Writer, l keymap.Layer) error {
	fmt.Fprintf(w, "%s (%d) %s\n", l, l, l.DisplayName())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for row := 0; row < keymap.Rows; row++ {
		for col := 0; col < keymap.Cols; col++ {
			label := keymap.Label(l, keymap.KeyPosition(row*keymap.Cols+col))
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(tw, "%s\t", label)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
