package endpoints

import (
	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/transport"
)

// DoorSensor discriminators.
var (
	DiscContact = []byte{0x01}
	DiscBattery = []byte{0x02}
)

// RFSwitch is a 433 MHz remote or wall switch reached through an RF433 relay.
type RFSwitch struct {
	*device.Device

	button *device.Event[uint8]
}

// NewRFSwitch registers a switch with the given 3-byte address on an RF433
// relay.
func NewRFSwitch(t transport.Transport, address []byte, cfg Config, opts ...device.Option) (*RFSwitch, error) {
	cfg = cfg.withDefaults()
	d, err := device.New(t, address, opts...)
	if err != nil {
		return nil, err
	}

	s := &RFSwitch{Device: d}
	if s.button, err = device.AddEvent(d, "button", nil, NewButtonDecoder(cfg.HoldOff, cfg.Clock)); err != nil {
		return nil, err
	}
	return s, nil
}

// Buttons is the stream of button presses (0-15).
func (s *RFSwitch) Buttons() *device.Event[uint8] { return s.button }

// DoorSensor is a battery-powered contact sensor reached through a
// hardware-address relay.
type DoorSensor struct {
	*device.Device

	contact *device.Event[bool]
	battery *device.Event[uint8]
}

// NewDoorSensor registers a door sensor with the given 6-byte hardware
// address on a hardware-address relay.
func NewDoorSensor(t transport.Transport, address []byte, opts ...device.Option) (*DoorSensor, error) {
	d, err := device.New(t, address, opts...)
	if err != nil {
		return nil, err
	}

	s := &DoorSensor{Device: d}
	if s.contact, err = device.AddEvent(d, "contact", DiscContact, codec.Lift(codec.DecodeBool)); err != nil {
		return nil, err
	}
	if s.battery, err = device.AddEvent(d, "battery", DiscBattery, codec.Lift(DecodeBattery)); err != nil {
		return nil, err
	}
	return s, nil
}

// Contact is the stream of contact changes; true means open.
func (s *DoorSensor) Contact() *device.Event[bool] { return s.contact }

// Battery is the stream of battery level reports in percent.
func (s *DoorSensor) Battery() *device.Event[uint8] { return s.battery }

// DecodeBattery decodes a percentage 0-100.
func DecodeBattery(b []byte) (uint8, error) {
	v, err := codec.DecodeUint8(b)
	if err != nil {
		return 0, err
	}
	if v > 100 {
		return 0, codec.ErrInvalidValue
	}
	return v, nil
}
