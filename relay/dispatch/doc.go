/*
Package dispatch tracks which relays are ready to serve requests and dispatches fetch requests
against them without making callers wait for every targeted relay to connect.

A request submitted with FetchEvents is served right away against the targeted relays that are
ready. The remaining relays are queued and served incrementally, one delegated fetch per
readiness wave, as the pool reports them ready. Queued requests older than
Parameters.QueueTimeout are dropped silently the next time the queue is flushed, so results for
relays that never became ready are simply absent.

Results for one request may therefore arrive as several batches, each delivered to the request's
Sink with the same request id.
*/
package dispatch
