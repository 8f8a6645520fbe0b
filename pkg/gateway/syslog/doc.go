// Package syslog forwards notifications to a syslog receiver.
//
// Notification severities map one to one onto syslog severities; an unknown
// severity is sent as informational. The facility comes from the category's
// "facility" option, falling back to the forwarder's default. Messages that
// exceed the rate limit or fail to send are dropped and logged.
package syslog
