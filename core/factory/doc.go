// Package factory instantiates pluggable modules from configuration.
//
// A module is selected by a type string and configured with a raw settings
// map; factories decode the settings with Decode and return the concrete
// implementation. Metrics sinks are built this way:
//
//	metrics:
//	  sinks:
//	    - type: influx
//	      conf:
//	        url: http://localhost:8086
//	        bucket: gates
package factory
