package models

import "strings"

// ChatMessage represents a single prior turn in a conversation
type ChatMessage struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // The message content
}

// AskRequest represents the incoming question from the frontend
type AskRequest struct {
	Question    string        `json:"question"`
	PDFID       *string       `json:"pdf_id,omitempty"`
	ChatHistory []ChatMessage `json:"chat_history,omitempty"`
}

// Grounded reports whether the question targets a collection
func (r *AskRequest) Grounded() bool {
	return r.PDFID != nil && *r.PDFID != ""
}

// Validate checks the request before any work starts
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return &ValidationError{Field: "question", Message: "question is required"}
	}
	for _, msg := range r.ChatHistory {
		if msg.Role != "user" && msg.Role != "assistant" {
			return &ValidationError{Field: "chat_history", Message: "role must be user or assistant, got " + msg.Role}
		}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
