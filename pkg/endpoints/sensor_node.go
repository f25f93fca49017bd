package endpoints

import (
	"context"
	"time"

	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/device"
	"github.com/homewire/homewire-go/pkg/transport"
)

// SensorNode discriminators.
var (
	DiscTemperature = []byte{0x40}
	DiscHumidity    = []byte{0x41}
	DiscMotion      = []byte{0x42}
	DiscReadings    = []byte{0x43}
)

// Readings is the combined sensor snapshot, CBOR-encoded with integer keys.
type Readings struct {
	// Temperature in hundredths of a degree Celsius.
	Temperature int16 `cbor:"1,keyasint"`

	// Humidity in tenths of a percent.
	Humidity uint16 `cbor:"2,keyasint"`

	// Uptime in seconds.
	Uptime uint32 `cbor:"3,keyasint"`
}

// Celsius returns the temperature in degrees Celsius.
func (r Readings) Celsius() float64 { return CentiToCelsius(r.Temperature) }

// Percent returns the relative humidity in percent.
func (r Readings) Percent() float64 { return PermilleToPercent(r.Humidity) }

// UptimeDuration returns the uptime.
func (r Readings) UptimeDuration() time.Duration {
	return time.Duration(r.Uptime) * time.Second
}

// SensorNode reports climate readings and motion.
type SensorNode struct {
	*device.Device

	temperature *device.Service[codec.None, int16]
	humidity    *device.Service[codec.None, uint16]
	readings    *device.Service[codec.None, Readings]
	motion      *device.Event[bool]
}

// NewSensorNode registers a sensor node on t.
func NewSensorNode(t transport.Transport, cfg Config, opts ...device.Option) (*SensorNode, error) {
	cfg = cfg.withDefaults()
	d, err := device.New(t, nil, opts...)
	if err != nil {
		return nil, err
	}

	n := &SensorNode{Device: d}
	if n.temperature, err = device.AddService(d, "temperature", DiscTemperature,
		codec.New(codec.EncodeNone, codec.DecodeInt16), cfg.cached()...); err != nil {
		return nil, err
	}
	if n.humidity, err = device.AddService(d, "humidity", DiscHumidity,
		codec.New(codec.EncodeNone, codec.DecodeUint16), cfg.cached()...); err != nil {
		return nil, err
	}
	if n.readings, err = device.AddService(d, "readings", DiscReadings,
		codec.New(codec.EncodeNone, codec.DecodeCBOR[Readings]), cfg.uncached()...); err != nil {
		return nil, err
	}
	if n.motion, err = device.AddEvent(d, "motion", DiscMotion, codec.Lift(codec.DecodeBool)); err != nil {
		return nil, err
	}
	return n, nil
}

// Temperature returns the temperature in degrees Celsius.
func (n *SensorNode) Temperature(ctx context.Context) (float64, error) {
	v, err := n.temperature.Call(ctx, codec.None{})
	if err != nil {
		return 0, err
	}
	return CentiToCelsius(v), nil
}

// Humidity returns the relative humidity in percent.
func (n *SensorNode) Humidity(ctx context.Context) (float64, error) {
	v, err := n.humidity.Call(ctx, codec.None{})
	if err != nil {
		return 0, err
	}
	return PermilleToPercent(v), nil
}

// Readings returns all readings in one exchange.
func (n *SensorNode) Readings(ctx context.Context) (Readings, error) {
	return n.readings.Call(ctx, codec.None{})
}

// Motion is the stream of motion detector changes.
func (n *SensorNode) Motion() *device.Event[bool] { return n.motion }

// CentiToCelsius converts hundredths of a degree to degrees.
func CentiToCelsius(v int16) float64 { return float64(v) / 100 }

// PermilleToPercent converts tenths of a percent to percent.
func PermilleToPercent(v uint16) float64 { return float64(v) / 10 }
