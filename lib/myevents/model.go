package myevents

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

type EventEnvelope struct {
	UID           string
	CreatedAt     time.Time
	Topic         string
	AggregateUID  string
	EventTypeName string
	EventPayload  string `datastore:",noindex"`
	Published     bool
}

func (e EventEnvelope) String() string {
	return e.Topic + "." + e.EventTypeName + "." + e.AggregateUID
}

func ParseEventEnvelope(reader io.Reader) (EventEnvelope, error) {
	envelope := EventEnvelope{}
	err := json.NewDecoder(reader).Decode(&envelope)
	if err != nil {
		return envelope, fmt.Errorf("error parsing event envelope: %s", err)
	}
	return envelope, nil
}

type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}
