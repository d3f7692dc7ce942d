package events

// Source is the subscription capability a backend exposes. Sinks may be
// called from any goroutine.
type Source interface {
	Subscribe(kinds []Kind, sink func(Event)) (Registration, error)
}

// Registration cancels a subscription.
type Registration interface {
	Close() error
}
