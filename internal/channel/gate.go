package channel

// EventGate decides whether a client-originated event may be relayed to
// other channel members.
type EventGate struct {
	classifier *Classifier
	transport  Transport
}

// NewEventGate creates EventGate.
func NewEventGate(classifier *Classifier, transport Transport) *EventGate {
	return &EventGate{
		classifier: classifier,
		transport:  transport,
	}
}

// IsEventAcceptable admits an event iff its name matches a client event
// pattern, its channel is private, and the sender is a member of that
// channel. A failed check is not an error: unacceptable events are ignored,
// nothing is signalled back to the sender.
func (g *EventGate) IsEventAcceptable(socket Socket, req ClientEventRequest) bool {
	if req.Channel == "" || req.Event == "" {
		return false
	}
	return g.classifier.IsClientEvent(req.Event) &&
		g.classifier.IsPrivate(req.Channel) &&
		g.transport.IsMember(socket.ID(), req.Channel)
}
