// Package infra holds the adapters around the allocation engine: the MQTT
// disruption feed, metrics sinks, Sentry monitoring and log output. Adapters
// depend on the interfaces declared under core, never the other way round.
package infra
