// Package messaging implements the SMS conversation domain: the outbound
// send pipeline, the processor for inbound and status callbacks, consent
// (opt-out and opt-in) tracking and the Store abstraction over conversation
// threads.
//
// Outbound flow:
//
//	Service.SendMessage -> opt-out check -> Pipeline.Send
//	    -> Limiter.Acquire (first attempt, or every attempt when gated)
//	    -> retry.Do(carrier send) -> Store.SaveMessage
//
// Inbound flow, after the signature is verified upstream:
//
//	Processor.HandleInbound -> normalize sender -> ClassifyKeyword
//	    -> RecordOptOut / RecordOptIn -> SaveMessage -> Reply
//
// Consent follows most-recent-wins: a number is opted out when its latest
// opt-out is newer than its latest opt-in.
package messaging
