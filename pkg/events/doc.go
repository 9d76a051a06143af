/*
Package events is an in-memory pub/sub broker used to fan fault,
election, and lifecycle notifications out to whatever inside pvcd wants
to react to them without coupling the producer to the consumer: the
HTTP adapter streaming events to a CLI watch command, the fault
aggregator counting events for metrics, a future webhook sink.

The broker itself is a buffered publish channel feeding a broadcast
goroutine, with subscribers holding their own buffered channel that
drops events rather than block a slow reader. The event catalog is
domain lifecycle, node membership, primary election, storage fault, and
network state transitions.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			...
		}
	}()

	broker.Publish(&events.Event{Type: events.EventDomainMigrated, Message: "..."})
*/
package events
