// Package messaging defines the delivery primitives the review workers are
// built on: a point-to-point queue with visibility-timeout redelivery and
// dead-letter overflow, a publish/subscribe topic with attribute-based
// filtering, and a dispatcher that maps handler outcomes to queue actions.
//
// Delivery is at least once. A received message stays invisible to other
// receivers for a visibility window and becomes visible again if not
// acknowledged; that redelivery is the sole retry mechanism. Messages whose
// delivery attempts exceed the configured budget move to a dead-letter queue.
//
// Handler outcomes follow a three-way contract:
//
//   - nil: the message is acknowledged and removed.
//   - a *TerminalError: retrying cannot help; the dispatcher moves the
//     message to the dead-letter queue immediately.
//   - any other error: transient; the message is left unacknowledged and
//     redelivered after the visibility window, up to the receive budget.
//
// Malformed input (a required field missing from a payload) is not an error
// at this layer: handlers log and return nil, discarding the message, since
// redelivery cannot fix malformed data.
package messaging
