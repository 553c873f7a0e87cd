// Package broadcast fans out state-change events to live subscribers of
// named channels. Delivery is best-effort and at-most-once: there is no
// persistence or replay, a subscriber that is offline at publish time misses
// the event, and a subscriber that cannot keep up is dropped rather than
// allowed to block the publisher. Events published on one channel by a single
// publisher arrive in publish order.
//
// Two adapters are provided: MemoryBroadcaster for single-process
// deployments and RedisBroadcaster for fan-out across process instances.
package broadcast
