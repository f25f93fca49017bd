// Package config loads the hub configuration.
//
// Files are YAML (.yaml, .yml) or TOML (.toml). Durations are written as Go
// duration strings ("2s", "15ms"). After parsing, the environment variables
// HOMEWIRE_LOG_LEVEL, HOMEWIRE_LOG_FORMAT and HOMEWIRE_CAPTURE override the
// matching fields, defaults are filled in and the result is validated.
//
// Example:
//
//	log:
//	  level: info
//	  format: text
//	endpoints:
//	  - name: gateway
//	    kind: gateway
//	    host: 192.168.1.10
//	    port: 4210
//	    sequence: true
//	  - name: remote
//	    kind: rf_switch
//	    gateway: gateway
//	    address: 0abcde
package config
