package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"answerhub-be/pkg/llm"
)

func TestChatStreamCollectsFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "test-key", "gpt-test")
	out, err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}

	var b strings.Builder
	for r := range out {
		if r.Err != nil {
			t.Fatalf("unexpected stream error: %v", r.Err)
		}
		b.WriteString(r.Content)
	}
	if b.String() != "Hello world" {
		t.Errorf("unexpected answer %q", b.String())
	}
}

func TestChatStreamCancelStopsProducer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for {
			if _, err := fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"tok\"}}]}\n\n"); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			default:
			}
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "test-key", "gpt-test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := p.ChatStream(ctx, []llm.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}

	if r := <-out; r.Err != nil || r.Content != "tok" {
		t.Fatalf("unexpected first fragment %+v", r)
	}

	// Stop consuming, then cancel. The producer must notice on its own and
	// close the channel instead of blocking on the next send forever.
	cancel()
	time.Sleep(100 * time.Millisecond)

	select {
	case r, ok := <-out:
		if ok {
			t.Fatalf("producer still sending after cancel: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel not closed after cancel")
	}
}
