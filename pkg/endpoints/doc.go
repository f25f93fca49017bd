// Package endpoints defines the controller kinds the hub talks to.
//
// Each kind wraps a device.Device and registers its services and events
// with fixed one-byte discriminators:
//
//	Gateway     0x01 Version          0x10 RadioCode (event)  0x11 RadioFrame (event)
//	RelayBoard  0x20 SetRelay         0x21 GetRelay (cached)  0x22 Input (event)
//	LEDDriver   0x30 SetColor         0x31 GetColor (cached)  0x32 SetBrightness
//	SensorNode  0x40 Temperature      0x41 Humidity           0x43 Readings
//	            0x42 Motion (event)
//	DoorSensor  0x01 Contact (event)  0x02 Battery (event)
//	RFSwitch    Button (event, no discriminator)
//
// Gateways, relay boards, LED drivers and sensor nodes sit on their own UDP
// transport. RF switches and door sensors are reached through the relays a
// Gateway exposes.
package endpoints
