package session

// Transport is the unreliable datagram pipe a Socket multiplexes session
// messages over. Datagrams passed to SendDatagram and received from
// Datagrams are the post-onion-decryption payload bytes of a single hop;
// the transport itself is free to drop, reorder, or duplicate them.
type Transport interface {
	// SendDatagram hands a single datagram to the underlying pipe. It
	// may block briefly but must not block indefinitely.
	SendDatagram(b []byte) error

	// Datagrams returns the stream of datagrams received from the peer.
	// The channel is closed when the transport is closed.
	Datagrams() <-chan []byte

	// Close tears down the transport.
	Close() error
}
