// Package dispatch is the processing core of the notification consumer: it
// classifies inbound deliveries, routes them to the matching handler, builds
// and sends the resulting email, and decides the acknowledgment outcome,
// including bounded retry and dead-lettering for the booking queue.
package dispatch
