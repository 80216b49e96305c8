package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"pdfqa/internal/models"
	"pdfqa/internal/repositories"
)

const DefaultTopK = 2

// QueryService answers questions, optionally grounded in one PDF collection
type QueryService struct {
	embedder   Embedder
	vectorRepo repositories.VectorIndex
	streamer   Streamer
	topK       int
	logger     *log.Logger
}

// NewQueryService creates a new query service
func NewQueryService(embedder Embedder, vectorRepo repositories.VectorIndex, streamer Streamer, logger *log.Logger) *QueryService {
	return &QueryService{
		embedder:   embedder,
		vectorRepo: vectorRepo,
		streamer:   streamer,
		topK:       DefaultTopK,
		logger:     logger,
	}
}

// retrieval is the grounded part of a query: context for the model, citations for the client
type retrieval struct {
	contextText string
	sources     []models.Source
}

// Ask prepares the answer and returns its event stream.
// Failures before the first event are returned as errors; later ones become a single error event.
func (s *QueryService) Ask(ctx context.Context, req models.AskRequest) (<-chan models.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, NewServiceError("ask", ErrValidation, err)
	}

	var pdfID *string
	var r retrieval
	if req.Grounded() {
		id := *req.PDFID
		pdfID = &id

		var err error
		r, err = s.retrieve(ctx, id, req.Question)
		if err != nil {
			return nil, err
		}
		s.logger.Printf("[%s] Retrieved %d chunks for question", id, len(r.sources))
	}

	events := make(chan models.Event)
	go s.answer(ctx, req, pdfID, r, events)
	return events, nil
}

// retrieve embeds the question and collects the nearest chunks of the collection
func (s *QueryService) retrieve(ctx context.Context, collectionID, question string) (retrieval, error) {
	exists, err := s.vectorRepo.CollectionExists(ctx, collectionID)
	if err != nil {
		return retrieval{}, NewServiceError("ask", ErrVectorIndex, err)
	}
	if !exists {
		return retrieval{}, NewServiceError("ask", ErrCollectionNotFound, repositories.CollectionNotFoundError(collectionID))
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return retrieval{}, err
	}

	hits, err := s.vectorRepo.Query(ctx, collectionID, vector, s.topK)
	if err != nil {
		return retrieval{}, NewServiceError("ask", ErrVectorIndex, err)
	}

	texts := make([]string, 0, len(hits))
	sources := make([]models.Source, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Text())
		sources = append(sources, models.Source{ChunkID: hit.ID})
	}

	return retrieval{
		contextText: strings.Join(texts, "\n\n"),
		sources:     sources,
	}, nil
}

// answer emits metadata, then the streamed deltas, then at most one error event
func (s *QueryService) answer(ctx context.Context, req models.AskRequest, pdfID *string, r retrieval, events chan<- models.Event) {
	defer close(events)

	send := func(ev models.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !send(models.MetadataEvent(pdfID, r.sources)) {
		return
	}

	deltas, err := s.streamer.Stream(ctx, req.Question, r.contextText, req.ChatHistory)
	if err != nil {
		s.logger.Printf("❌ Completion request failed: %v", err)
		send(models.ErrorEvent(errorMessage(err)))
		return
	}

	for d := range deltas {
		if d.Err != nil {
			s.logger.Printf("❌ Completion stream failed: %v", d.Err)
			send(models.ErrorEvent(errorMessage(d.Err)))
			// let the producer finish
			for range deltas {
			}
			return
		}
		if !send(models.ChunkEvent(d.Text)) {
			for range deltas {
			}
			return
		}
	}
}

// errorMessage is the client-facing text of an in-band error event
func errorMessage(err error) string {
	return fmt.Sprintf("Error generating answer: %v", err)
}
