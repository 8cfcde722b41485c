// Package stream relays pipeline answer fragments to a client as typed
// frames and persists the completed answer exactly once.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"answerhub-be/pkg/pipeline/orchestrate"
	"answerhub-be/pkg/store"
)

const (
	FrameChunk      = "chunk"
	FrameReferences = "references"
	FrameDone       = "done"
)

// Frame is one server-sent event payload.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Encode renders a frame in SSE wire format.
func Encode(frame Frame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return []byte("data: " + string(payload) + "\n\n"), nil
}

// EmitFunc delivers one frame to the client. A returned error means the
// client is gone and the relay stops.
type EmitFunc func(Frame) error

// PersistFunc stores the completed assistant answer with its citations.
type PersistFunc func(answer string, references []store.EvidenceItem) error

type Relay struct {
	logger *log.Logger
}

func NewRelay(logger *log.Logger) *Relay {
	return &Relay{logger: logger}
}

// Pump drains the outcome's fragment stream into emit, then sends the
// references and done frames. persist runs at most once, only when the
// stream completed normally with a non-empty answer. Cancellation or a
// failed emit aborts without persisting.
func (r *Relay) Pump(ctx context.Context, out orchestrate.Outcome, emit EmitFunc, persist PersistFunc) error {
	var answer strings.Builder
	failed := false

drain:
	for {
		select {
		case <-ctx.Done():
			r.logger.Printf("[RELAY] Client cancelled mid-stream, dropping answer")
			return ctx.Err()
		case fragment, ok := <-out.Fragments:
			if !ok {
				break drain
			}
			if fragment.Err != nil {
				r.logger.Printf("[RELAY] Stream failed mid-answer: %v", fragment.Err)
				failed = true
				if err := emit(Frame{Type: FrameChunk, Data: orchestrate.VisibleErrorText}); err != nil {
					return err
				}
				break drain
			}
			answer.WriteString(fragment.Content)
			if err := emit(Frame{Type: FrameChunk, Data: fragment.Content}); err != nil {
				r.logger.Printf("[RELAY] Emit failed, client gone: %v", err)
				return err
			}
		}
	}

	if !failed && answer.Len() > 0 && persist != nil {
		if err := persist(answer.String(), out.References); err != nil {
			// The client already has the answer; losing the record is a
			// server-side problem only.
			r.logger.Printf("[RELAY] Failed to persist assistant answer: %v", err)
		}
	}

	references := out.References
	if references == nil {
		references = []store.EvidenceItem{}
	}
	if err := emit(Frame{Type: FrameReferences, Data: references}); err != nil {
		return err
	}
	return emit(Frame{Type: FrameDone})
}
