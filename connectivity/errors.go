package connectivity

import "fmt"

// ErrServiceNotFound is returned when Call targets a service with no
// route and no local handler.
type ErrServiceNotFound struct {
	Service string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("connectivity: service not routable: %s", e.Service)
}

// ErrFactoryFailed is returned when a TransportFactory returns an error
// while building a handler for a route.
type ErrFactoryFailed struct {
	Service  string
	Strategy string
	Endpoint string
	Cause    error
}

func (e *ErrFactoryFailed) Error() string {
	return fmt.Sprintf("connectivity: factory %q failed for service %s (endpoint %s): %v",
		e.Strategy, e.Service, e.Endpoint, e.Cause)
}

func (e *ErrFactoryFailed) Unwrap() error { return e.Cause }

// ErrNotConnected is returned by Channel.Send when the connect handshake
// has not succeeded.
type ErrNotConnected struct{}

func (e *ErrNotConnected) Error() string {
	return "connectivity: channel not connected"
}
