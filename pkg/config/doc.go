// Package config loads the daemon configuration from YAML and applies it to
// a running registry.
//
// A configuration names the sequence backend, the gateways to start and the
// managed resources. Each resource selects a connector type, a connection
// string, resource options and the attributes and event categories to bind:
//
//	resources:
//	  web:
//	    type: memory
//	    attributes:
//	      uptime:
//	        type: int64
//	        access: ro
//	        options: {oid: ".1.3.6.1.4.1.9999.1"}
//	    events:
//	      alarms:
//	        severity: critical
//
// Applier brings a registry in line with a configuration, reconnecting only
// what changed. Watcher reloads the file whenever it is written.
package config
