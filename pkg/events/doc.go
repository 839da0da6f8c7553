/*
Package events provides an in-memory event broker for rollout progress.

The rollout controller publishes one event per observable step: attempt
started, slot deployed or deleted, health gate passed or failed, traffic
switched, and the terminal outcome. Subscribers receive events over buffered
channels with non-blocking delivery, so a slow consumer can never stall a
rollout; a full subscriber buffer drops the event for that subscriber only.

The CLI subscribes to print live progress during fleet runs. Anything else
that wants to watch rollouts (an audit sink, a notifier) can subscribe the
same way without touching the state machine.
*/
package events
