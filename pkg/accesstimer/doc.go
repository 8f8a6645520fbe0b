// Package accesstimer tracks when attributes or resource groups were last
// accessed.
//
// Passive connectors receive values pushed by the resource instead of
// polling it. A pushed value is only trustworthy for a configured expiration
// period; after that the connector treats the attribute as stale.
//
// # Timer
//
// A Timer holds one monotonic timestamp. Reset stamps it with the current
// time; Stale compares the elapsed time against an expiration. A zero or
// negative expiration never expires.
//
// # Manager
//
// A Manager keeps one Timer per key (attribute ID or group name). With
// an expiration configured, the Manager arms a timer per key and calls the
// expiry callback once a key has not been touched for that long. Touching the
// key again re-arms it.
//
// All operations are safe for concurrent use.
package accesstimer
