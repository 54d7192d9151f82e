// Package kafka publishes shopAuth audit events to a Kafka topic, one JSON
// message per event keyed by subject.
package kafka
