package main

import (
	"fmt"
	"time"

	"onehand/internal/auxreport"
	"onehand/internal/keymap"
)

const (
	recentKeyCount = 10
	rateWindow     = 60 * time.Second
	minRateSpan    = 100 * time.Millisecond
)

// KeyRecord is one detected key press, as written to the session log.
type KeyRecord struct {
	At           time.Time
	Layer        keymap.Layer
	KeyLayer     keymap.Layer
	KeyID        int
	KeyLabel     string
	KeyPresses   int
	FnPresses    int
	EncoderSteps int
	MouseClicks  int
}

// Update is what one sample changed.
type Update struct {
	LayerChanged bool
	Layer        keymap.Layer

	// Key is set when the key-press counter moved.
	Key *KeyRecord

	Rate float64
}

type pressPoint struct {
	at    time.Time
	count int
}

// Tracker derives key presses and layer changes from successive telemetry
// samples. The report only carries the last key, so a press is detected when
// the key counter changes; bursts faster than the report rate collapse to one.
type Tracker struct {
	haveLayer bool
	layer     keymap.Layer

	haveCount bool
	lastCount int

	recent   []string
	perKey   [keymap.PositionCount]int
	perLayer [keymap.LayerCount][keymap.PositionCount]int
	history  []pressPoint
}

func NewTracker() *Tracker { return &Tracker{} }

// Observe folds one sample into the tracker.
func (t *Tracker) Observe(s Sample) Update {
	r := s.Report
	now := s.At
	current := keymap.Layer(r.CurrentLayer)

	var u Update
	u.Layer = current
	if !t.haveLayer || current != t.layer {
		u.LayerChanged = true
		t.layer = current
		t.haveLayer = true
	}

	count := int(r.KeyPresses)
	if !t.haveCount {
		t.lastCount = count
		t.haveCount = true
		t.history = append(t.history, pressPoint{at: now, count: count})
	}

	if count != t.lastCount {
		t.lastCount = count
		t.history = append(t.history, pressPoint{at: now, count: count})
		u.Key = t.recordKey(r, now)
	}

	t.pruneHistory(now)
	u.Rate = t.Rate()
	return u
}

func (t *Tracker) recordKey(r auxreport.Report, now time.Time) *KeyRecord {
	keyID := int(r.LastKey)
	keyLayer := keymap.Layer(r.LastKeyLayer)
	if r.KeyLayerUnknown {
		keyLayer = keymap.Layer(r.CurrentLayer)
	}
	label := keymap.Label(keyLayer, keymap.KeyPosition(keyID))
	if label == "" {
		label = "?"
	}

	t.recent = append([]string{fmt.Sprintf("%s (L%d)", label, keyLayer)}, t.recent...)
	if len(t.recent) > recentKeyCount {
		t.recent = t.recent[:recentKeyCount]
	}

	if keymap.KeyPosition(keyID).Valid() {
		t.perKey[keyID]++
		if keyLayer.Valid() {
			t.perLayer[keyLayer][keyID]++
		}
	}

	return &KeyRecord{
		At:           now,
		Layer:        keymap.Layer(r.CurrentLayer),
		KeyLayer:     keyLayer,
		KeyID:        keyID,
		KeyLabel:     label,
		KeyPresses:   int(r.KeyPresses),
		FnPresses:    int(r.FnPresses),
		EncoderSteps: int(r.EncoderSteps),
		MouseClicks:  int(r.MouseClicks),
	}
}

func (t *Tracker) pruneHistory(now time.Time) {
	i := 0
	for i < len(t.history) && now.Sub(t.history[i].at) > rateWindow {
		i++
	}
	t.history = t.history[i:]
}

// Rate is key presses per second over the last minute.
func (t *Tracker) Rate() float64 {
	if len(t.history) < 2 {
		return 0
	}
	first, last := t.history[0], t.history[len(t.history)-1]
	span := last.at.Sub(first.at)
	if span < minRateSpan {
		span = minRateSpan
	}
	return float64(last.count-first.count) / span.Seconds()
}

// Recent returns the last key labels, newest first.
func (t *Tracker) Recent() []string {
	return append([]string(nil), t.recent...)
}

// Counts returns per-position press counts for one layer.
func (t *Tracker) Counts(l keymap.Layer) [keymap.PositionCount]int {
	if !l.Valid() {
		return t.perKey
	}
	return t.perLayer[l]
}

// TotalCounts returns per-position press counts across layers.
func (t *Tracker) TotalCounts() [keymap.PositionCount]int { return t.perKey }

// Heat maps counts to an intensity in [50,255], relative to the busiest key.
func Heat(counts [keymap.PositionCount]int) [keymap.PositionCount]int {
	maxCount := 1
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}
	var out [keymap.PositionCount]int
	for i, c := range counts {
		out[i] = 50 + 205*c/maxCount
	}
	return out
}
