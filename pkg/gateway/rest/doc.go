// Package rest exposes attached resources over HTTP and WebSocket.
//
// Routes:
//
//	GET  /attribute/{namespace}/{id}        read an attribute (JSON or CBOR)
//	PUT  /attribute/{namespace}/{id}        write an attribute
//	GET  /namespaces                        list attached resources
//	GET  /namespaces/{namespace}/attributes list connected attributes
//	GET  /namespaces/{namespace}/events     list enabled notification categories
//	GET  /notifications/{namespace}         WebSocket notification stream
//	GET  /health, /ready, /version, /metrics
//
// Values are rendered by the type conversion engine: JSON by default, a
// CBOR value frame when the client accepts application/cbor. Errors are
// JSON bodies carrying a machine-readable code, the request ID and a
// timestamp.
//
// The notification stream negotiates one of two subprotocols. "text" sends
// one JSON text frame per notification with the message under "message";
// "cbor" sends one binary wire frame per notification. When the client
// closes the socket the server answers with the same close code and reason.
package rest
