// Package netreq exposes the client builder.
package netreq

import (
	"github.com/adamwoolhether/netreq/client"
)

// NewClient instantiates a new *client.Client with the provided options.
// If no session is given, an HTTP session over the default transport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
