// Package mda implements the monitoring data acceptor connector: a resource
// that does not answer requests but has its attribute values and events
// pushed to it.
//
// Values arrive over HTTP or NATS. The connection string selects the
// transport:
//
//	(empty)                  push API only reachable through Handler
//	http://0.0.0.0:9000      push API served on that address
//	nats://nats:4222         subjects <subject>.attributes.<name> and
//	                         <subject>.notifications.<category>
//
// HTTP routes:
//
//	PUT  /attributes/{name}       JSON value
//	GET  /attributes/{name}       last pushed value
//	POST /notifications/{category} {"message", "sequence", "timestamp", "userData"}
//
// With the "expiration" resource option a pushed value is only served for
// that long; afterwards reads fail until the next push. The "advertise"
// option announces an HTTP endpoint and its declared features over mDNS
// under the given instance name.
package mda
