package hub

import (
	"github.com/homewire/homewire-go/pkg/config"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/endpoints"
	"github.com/homewire/homewire-go/pkg/transport"
)

// EndpointStatus is a point-in-time view of one endpoint.
type EndpointStatus struct {
	Name      string
	Kind      config.Kind
	Transport string
	State     transport.State
	Online    bool
	Pending   int
}

// Status returns a snapshot of every endpoint in Names order.
func (h *Hub) Status() []EndpointStatus {
	out := make([]EndpointStatus, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, EndpointStatus{
			Name:      e.name,
			Kind:      e.kind,
			Transport: transportName(e.transport),
			State:     e.transport.State(),
			Online:    e.device.Online(),
			Pending:   e.device.Pending(),
		})
	}
	return out
}

// Notification is one event or online change reported by an endpoint.
type Notification struct {
	Endpoint string
	Event    string
	Value    any
}

// EventOnline names online change notifications; Value is a bool.
const EventOnline = "online"

// Subscribe delivers every endpoint event and online change to fn until the
// returned cancel is called. fn runs on the receiving transport's goroutine.
func (h *Hub) Subscribe(fn func(Notification)) (cancel func()) {
	var cancels []func()
	for _, e := range h.entries {
		name := e.name
		cancels = append(cancels, e.device.OnOnlineChange(func(online bool) {
			fn(Notification{Endpoint: name, Event: EventOnline, Value: online})
		}))

		switch v := e.value.(type) {
		case *endpoints.Gateway:
			cancels = append(cancels, forward(name, v.RadioCodes(), fn), forward(name, v.RadioFrames(), fn))
		case *endpoints.RelayBoard:
			cancels = append(cancels, forward(name, v.Inputs(), fn))
		case *endpoints.SensorNode:
			cancels = append(cancels, forward(name, v.Motion(), fn))
		case *endpoints.RFSwitch:
			cancels = append(cancels, forward(name, v.Buttons(), fn))
		case *endpoints.DoorSensor:
			cancels = append(cancels, forward(name, v.Contact(), fn), forward(name, v.Battery(), fn))
		}
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func forward[T any](endpoint string, ev *device.Event[T], fn func(Notification)) func() {
	return ev.Subscribe(func(v T) {
		fn(Notification{Endpoint: endpoint, Event: ev.Name(), Value: v})
	})
}
