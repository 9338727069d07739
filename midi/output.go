package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-pattern/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrNoPort is returned when a named output port is not present.
var ErrNoPort = errors.New("midi: output port not found")

// Sender delivers one wire message.
type Sender func(gomidi.Message) error

// Sink receives scheduled events at their play time.
type Sink interface {
	Send(Event) error
}

// PortSource lists output ports. The default queries the system driver.
type PortSource func() []drivers.Out

// Output sends events to named system MIDI ports, opening each lazily.
type Output struct {
	defaultPort string
	ports       PortSource
	senders     map[string]Sender
	opened      map[string]string // requested name -> system port name
	sendersMu   sync.RWMutex
}

// NewOutput creates an output that routes to defaultPort. An empty name
// picks the first available port.
func NewOutput(defaultPort string) *Output {
	return &Output{
		defaultPort: defaultPort,
		ports:       func() []drivers.Out { return gomidi.GetOutPorts() },
		senders:     make(map[string]Sender),
		opened:      make(map[string]string),
	}
}

// SetDefaultPort changes the port used by Send.
func (o *Output) SetDefaultPort(name string) {
	o.sendersMu.Lock()
	o.defaultPort = name
	o.sendersMu.Unlock()
}

// Send implements Sink on the default port.
func (o *Output) Send(e Event) error {
	o.sendersMu.RLock()
	port := o.defaultPort
	o.sendersMu.RUnlock()
	return o.SendTo(port, e)
}

// SendTo writes e to the named port.
func (o *Output) SendTo(port string, e Event) error {
	msg := e.Message()
	if msg == nil {
		return fmt.Errorf("midi: unsupported event type %#x", e.Type)
	}
	sender, err := o.sender(port)
	if err != nil {
		return err
	}
	if err := sender(msg); err != nil {
		return fmt.Errorf("midi: send to %q: %w", port, err)
	}
	return nil
}

// forgetPort drops every cached sender opened on the system port.
func (o *Output) forgetPort(system string) {
	o.sendersMu.Lock()
	defer o.sendersMu.Unlock()
	for name, port := range o.opened {
		if port == system {
			delete(o.senders, name)
			delete(o.opened, name)
		}
	}
}

// sender returns a sender for the given port name, lazily opening it
func (o *Output) sender(portName string) (Sender, error) {
	// Fast path: already open
	o.sendersMu.RLock()
	if s, ok := o.senders[portName]; ok {
		o.sendersMu.RUnlock()
		return s, nil
	}
	o.sendersMu.RUnlock()

	o.sendersMu.Lock()
	defer o.sendersMu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := o.senders[portName]; ok {
		return s, nil
	}

	for _, port := range o.ports() {
		if portName != "" && !strings.Contains(port.String(), portName) {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("midi: open %q: %w", port.String(), err)
		}
		debug.Log("midi", "opened output %q for %q", port.String(), portName)
		o.senders[portName] = send
		o.opened[portName] = port.String()
		return send, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoPort, portName)
}

// Ports lists input and output port names. CoreMIDI can hang while
// enumerating, so the query gives up after timeout.
func Ports(timeout time.Duration) (ins, outs []string, err error) {
	type result struct {
		ins, outs []string
	}
	ch := make(chan result, 1)
	go func() {
		var r result
		for _, p := range gomidi.GetInPorts() {
			r.ins = append(r.ins, p.String())
		}
		for _, p := range gomidi.GetOutPorts() {
			r.outs = append(r.outs, p.String())
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, errors.New("midi: port enumeration timed out")
	}
}

// CloseDriver releases the system MIDI driver.
func CloseDriver() {
	gomidi.CloseDriver()
}
