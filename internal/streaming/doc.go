/*
Package streaming protects long HTTP responses from stalled clients.

The gallery server runs without a global write timeout because the
download-all archive can take minutes to send. A client that stops
reading would otherwise pin a handler goroutine and its open files
forever. [TimeoutWriter] splits writes into chunks and moves the
connection's write deadline forward before each one, so only a stall
ends the stream:

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultConfig())
	defer tw.Close()

	if _, err := archive.Write(r.Context(), tw, layout, assets); err != nil {
		if errors.Is(err, streaming.ErrWriteTimeout) {
			// client stalled
		}
	}

Errors are mapped onto three sentinels: [ErrWriteTimeout] for a stalled
client or an exceeded MaxDuration, [ErrClientGone] once the request
context is done, and [ErrStreamClosed] after Close.

Writers that cannot carry deadlines, such as httptest.ResponseRecorder,
are streamed without them.
*/
package streaming
