package models

import "encoding/json"

// EventType is the discriminator of one ndjson line on /ask
type EventType string

const (
	EventMetadata EventType = "metadata"
	EventChunk    EventType = "chunk"
	EventError    EventType = "error"
)

// Source cites one retrieved chunk by id only
type Source struct {
	ChunkID int `json:"chunk_id"`
}

// Event is one frame of the answer stream.
// A stream carries exactly one metadata event first, then chunk events, then at most one error event.
type Event struct {
	Type    EventType
	PDFID   *string
	Sources []Source
	Content string
}

// MetadataEvent builds the opening event; pdfID is nil for ungrounded questions
func MetadataEvent(pdfID *string, sources []Source) Event {
	if sources == nil {
		sources = []Source{}
	}
	return Event{Type: EventMetadata, PDFID: pdfID, Sources: sources}
}

// ChunkEvent carries one answer-text delta
func ChunkEvent(content string) Event {
	return Event{Type: EventChunk, Content: content}
}

// ErrorEvent terminates a stream after a failure
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Content: message}
}

// MarshalJSON emits {type, pdf_id, sources} for metadata and {type, content} otherwise
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Type == EventMetadata {
		sources := e.Sources
		if sources == nil {
			sources = []Source{}
		}
		return json.Marshal(struct {
			Type    EventType `json:"type"`
			PDFID   *string   `json:"pdf_id"`
			Sources []Source  `json:"sources"`
		}{e.Type, e.PDFID, sources})
	}
	return json.Marshal(struct {
		Type    EventType `json:"type"`
		Content string    `json:"content"`
	}{e.Type, e.Content})
}

// UnmarshalJSON accepts both frame shapes; used by the CLI and tests
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type    EventType `json:"type"`
		PDFID   *string   `json:"pdf_id"`
		Sources []Source  `json:"sources"`
		Content string    `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event{Type: raw.Type, PDFID: raw.PDFID, Sources: raw.Sources, Content: raw.Content}
	return nil
}
