package pipeline

import "net/http"

// Constructor wraps a round tripper with another.
type Constructor func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain is an immutable list of round tripper constructors.
//
//	NewChain(m1, m2, m3).Then(rt)
//
// is equivalent to m1(m2(m3(rt))): requests pass through m1 first.
type Chain struct {
	constructors []Constructor
}

func NewChain(constructors ...Constructor) Chain {
	return Chain{append([]Constructor(nil), constructors...)}
}

// Then builds the chain around h. A nil h means http.DefaultTransport.
func (c Chain) Then(h http.RoundTripper) http.RoundTripper {
	if h == nil {
		h = http.DefaultTransport
	}
	for i := range c.constructors {
		h = c.constructors[len(c.constructors)-1-i](h)
	}
	return h
}

// Append returns a new chain with constructors added at the end.
func (c Chain) Append(constructors ...Constructor) Chain {
	newCons := make([]Constructor, 0, len(c.constructors)+len(constructors))
	newCons = append(newCons, c.constructors...)
	newCons = append(newCons, constructors...)
	return Chain{newCons}
}
