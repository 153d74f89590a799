package wire

// SignalInInit is the first message received from a remote session. It
// carries the protocol version the remote side speaks.
type SignalInInit struct {
	Version int
}

func (*SignalInInit) SignalName() string { return "Init" }

// SignalOutAck acknowledges the message with the given sequence number.
type SignalOutAck struct {
	Seq int
}

func (*SignalOutAck) SignalName() string { return "Ack" }
