// Package client runs declarative HTTP requests through a uniform response
// pipeline.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. Without
// [WithSession] the client talks to the network through a
// [transport.HTTP] session:
//
//	c, err := client.Build(
//		client.WithTransportOptions(
//			transport.WithTimeout(10*time.Second),
//			transport.WithUserAgent("myapp/1.0"),
//		),
//	)
//
// # Describing Requests
//
// A [request.Descriptor] states what a request is. It is immutable and can be
// reused for any number of calls:
//
//	d, err := request.Parse(request.MethodGet, "https://api.example.com/users/1",
//		request.WithHeaders(map[string]string{"Accept": "application/json"}),
//		request.OnError(func(err error, _ *http.Request) { ... }),
//	)
//
// # Making Calls
//
// Every call runs asynchronously and returns a [dispatch.Call]. The result is
// delivered to a completion as an [Envelope]:
//
//	call := client.Object(ctx, c, d, decode.Schema[User](), func(env client.Envelope[User]) {
//		user, err := env.Result()
//		...
//	})
//
// [Client.Data] delivers the raw body and [Client.JSON] a [jsonvalue.Value].
// [WithUpload] and [WithMultipart] send a body of their own.
//
// # Cancellation
//
// Cancelling a call with [dispatch.Call.Cancel], or cancelling its context,
// suppresses delivery: no hook fires and the completion is never called.
// A timeout is not a cancellation and is delivered as a transport failure.
package client
