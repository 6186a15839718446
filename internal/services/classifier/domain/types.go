// Package domain defines the classifier service types and ports
package domain

// InboundEnvelope is the record consumed from the text-extraction topic
type InboundEnvelope struct {
	DocID string `json:"docId" validate:"required"`
	Text  string `json:"text"`
}

// OutboundEnvelope is the enriched record republished downstream.
// Unmapped fields are explicit nulls so consumers can distinguish
// "not detected" from "field missing"
type OutboundEnvelope struct {
	DocID            string  `json:"docId"`
	Text             string  `json:"text"`
	DocType          *string `json:"docType"`
	JurisdictionCode *string `json:"jurisdictionCode"`
}

// Metadata summarizes one processed message for structured logging
type Metadata struct {
	ProcessingMs  float64
	DetectorsRun  int
	Succeeded     int
	Failed        int
	HasDetections bool
}

// Message is one record polled from the inbound channel
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int32
	Offset    int64
}
