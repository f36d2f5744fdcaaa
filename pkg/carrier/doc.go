// Package carrier talks to the SMS provider.
//
// Client submits outbound messages over the provider's REST API using form
// encoding and basic auth. Non-2xx responses become *ProviderError values
// whose ProviderCode feeds retry classification; transport failures are
// wrapped in ErrTransport with the network error kept in the chain.
//
// MessagingResponse renders the TwiML reply for inbound callbacks, and
// CircuitBreaker lets callers fail fast while the provider is down.
package carrier
