package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoteEvent is sent when a note is played on a keyboard. Velocity 0 marks
// a release.
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
}

// Input delivers notes from a MIDI keyboard.
type Input struct {
	name     string
	stopFunc func()
	noteChan chan NoteEvent
}

// OpenInput listens on the first input port whose name contains portName.
func OpenInput(portName string) (*Input, error) {
	for _, port := range gomidi.GetInPorts() {
		if !strings.Contains(port.String(), portName) {
			continue
		}
		in := &Input{
			name:     port.String(),
			noteChan: make(chan NoteEvent, 32),
		}
		stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
			var channel, note, velocity uint8
			switch {
			case msg.GetNoteOn(&channel, &note, &velocity):
			case msg.GetNoteOff(&channel, &note, &velocity):
				velocity = 0
			default:
				return
			}
			in.deliver(NoteEvent{Note: note, Velocity: velocity, Channel: channel})
		})
		if err != nil {
			return nil, fmt.Errorf("midi: open input %q: %w", port.String(), err)
		}
		in.stopFunc = stop
		return in, nil
	}
	return nil, fmt.Errorf("%w: input %q", ErrNoPort, portName)
}

// deliver drops the event if the consumer is behind.
func (in *Input) deliver(ev NoteEvent) {
	select {
	case in.noteChan <- ev:
	default:
	}
}

func (in *Input) Name() string {
	return in.name
}

func (in *Input) NoteEvents() <-chan NoteEvent {
	return in.noteChan
}

func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
	}
	close(in.noteChan)
	return nil
}
