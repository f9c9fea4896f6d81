package rag

import "pdfqa/pubsub"

// IngestEvent is published while a document moves through ingestion.
type IngestEvent struct {
	Path    string
	Message string
	Pages   int
	Chunks  int
	Err     error
}

// EventSink receives ingestion progress. *pubsub.Broker[IngestEvent] satisfies it.
type EventSink = pubsub.Publisher[IngestEvent]

// NewEventBroker creates a broker for ingestion events.
func NewEventBroker() *pubsub.Broker[IngestEvent] {
	return pubsub.NewBroker[IngestEvent]()
}

type nopSink struct{}

func (nopSink) Publish(pubsub.EventType, IngestEvent) {}

func sinkOrNop(s EventSink) EventSink {
	if s == nil {
		return nopSink{}
	}
	return s
}
