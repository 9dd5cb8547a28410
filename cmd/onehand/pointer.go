package main

// Direction is the latched rotation direction of the encoder.
type Direction int8

const (
	DirNone             Direction = 0
	DirClockwise        Direction = 1
	DirCounterClockwise Direction = -1
)

// EncoderSample is the encoder state read once per poll.
type EncoderSample struct {
	Position  int
	Direction Direction
}

// OnEncoderSample emits one scroll unit whenever the accumulated position moved
// since the previous poll. The wheel turns opposite to the latched direction,
// so clockwise scrolls down. The raw step magnitude only feeds telemetry.
func (st *KeyboardState) OnEncoderSample(prev, curr EncoderSample) []Command {
	if curr.Position == prev.Position {
		return nil
	}
	st.Telemetry.recordEncoderSteps(curr.Position - prev.Position)
	if curr.Direction == DirNone {
		return nil
	}
	return []Command{CmdMouseMove{Wheel: -int(curr.Direction)}}
}

// OnButtonEdge turns a falling edge of the push switch into a middle click.
func (st *KeyboardState) OnButtonEdge(fell bool) []Command {
	if !fell {
		return nil
	}
	st.Telemetry.recordMouseClick()
	return []Command{CmdMouseClick{Button: MouseMiddle}}
}
