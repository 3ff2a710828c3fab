package fanout

// Conn is the interface for any live connection the router can deliver to
// (e.g. WebSocket). It abstracts the underlying transport so the router can
// manage different connection types uniformly.
type Conn interface {
	// ID returns the identifier of the party behind the connection
	// (visitor anon ID or creator ID).
	ID() string

	// Enqueue hands an already-serialized event to the connection's writer.
	// It must never block; when the outbound buffer is full the event is
	// dropped and false is returned.
	Enqueue(data []byte) bool

	// IsOpen reports whether the underlying transport can still accept
	// writes. The router skips closed connections instead of removing them;
	// removal happens only through the connection's own close notification.
	IsOpen() bool

	// Run starts the connection's read and write pumps.
	Run()
	// Close shuts down the connection and its outbound channel.
	Close()
}
