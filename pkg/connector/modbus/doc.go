// Package modbus implements a connector for Modbus TCP and RTU devices.
//
// The connection string selects the transport:
//
//	tcp://10.0.0.5:502
//	rtu:///dev/ttyUSB0?baud=19200&parity=E
//
// Each attribute names its register with the "address" option in the form
// table:offset[:count]. Tables are coil, discrete, input and holding; coils
// and holding registers are writable. Multi-register values are big-endian
// with the high word first. The register count follows from the declared
// type (int16 1, int32 and float32 2, int64 and float64 4); strings and
// bytes need an explicit count.
//
// A notification category polls its "address" every "period" and emits an
// event carrying the new value whenever it changes.
//
// Resources can declare their register map with options of the form
// "register.<name>" = "table:offset[:count]|type|access", which Discover
// reports as attributes.
package modbus
