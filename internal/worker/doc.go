// Package worker delivers queued notifications for one channel.
//
// Processor is a broker.Handler that drives every envelope through the same
// steps regardless of channel:
//
//	received → resolving → rendering → delivering → finalizing
//
// The channel-specific part is a Deliverer: EmailDeliverer sends through
// pkg/email, PushDeliverer posts to an HTTP push gateway.
//
// Before doing any work Processor checks the status tracker and acks
// envelopes whose record is already terminal, so broker redeliveries never
// reach the transport twice. A user who disabled the channel ends as
// DELIVERED with skip reason "PreferenceSkip". Every other failure is
// recorded as FAILED and the handler returns an error so the consumer moves
// the envelope to the failed queue. The message is only settled after the
// status write succeeded; if the tracker is unreachable the handler asks
// for a requeue.
package worker
