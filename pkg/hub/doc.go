// Package hub assembles a running system from a config.Config.
//
// For every UDP endpoint the hub creates one transport and the matching
// endpoint from package endpoints. Every gateway additionally gets an RF433
// relay and a hardware-address relay, and relayed endpoints (RF switches,
// door sensors) are registered on the relays of the gateway they name.
//
//	 config.Config
//	      |
//	   hub.New
//	      |
//	 +----+--------------------+
//	 |                         |
//	UDP transports          gateway relays
//	 |                         |
//	gateway, relay_board,   rf_switch, door_sensor
//	led_driver, sensor_node
//
// Start connects every UDP transport in parallel and then the relays.
// Connection failures are logged and retried by each transport's keepalive;
// they never fail Start.
package hub
