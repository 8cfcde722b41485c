package regulator

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(serverURL, "", log.New(io.Discard, "", 0))
	return c
}

func TestRespondStreamsFragmentsAndCitations(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/get-response-message" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.Header().Set("x-metainfo", `{"urls":[{"title":"Lodgment dates","url":"https://example.gov/dates","hierrachy":"Reporting > Deadlines"}]}`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("The due date depends\non your entity type.\n"))
	}))
	defer server.Close()

	answer, refs, err := newTestClient(server.URL).Respond(context.Background(), "when is my return due")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}

	if answer != "The due date depends\non your entity type.\n" {
		t.Errorf("unexpected answer %q", answer)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(refs))
	}
	if refs[0].Title != "Lodgment dates" || refs[0].URL != "https://example.gov/dates" || refs[0].Hierarchy != "Reporting > Deadlines" {
		t.Errorf("unexpected citation %+v", refs[0])
	}

	if gotBody["username"] != "user" {
		t.Errorf("expected default username %q, got %v", "user", gotBody["username"])
	}
	if gotBody["prompt"] != "when is my return due" {
		t.Errorf("unexpected prompt %v", gotBody["prompt"])
	}
	if gotBody["learn"] != false || gotBody["stream"] != true {
		t.Errorf("unexpected flags learn=%v stream=%v", gotBody["learn"], gotBody["stream"])
	}
}

func TestRespondMalformedMetainfoDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-metainfo", "{not json")
		w.Write([]byte("answer\n"))
	}))
	defer server.Close()

	answer, refs, err := newTestClient(server.URL).Respond(context.Background(), "q")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if answer != "answer\n" {
		t.Errorf("unexpected answer %q", answer)
	}
	if len(refs) != 0 {
		t.Errorf("expected no citations, got %d", len(refs))
	}
}

func TestRespondMissingMetainfoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	}))
	defer server.Close()

	_, refs, err := newTestClient(server.URL).Respond(context.Background(), "q")
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if refs != nil {
		t.Errorf("expected nil citations, got %v", refs)
	}
}

func TestRespondServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).Respond(context.Background(), "q")
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error should carry status code, got %v", err)
	}
}

func TestRespondStreamSkipsBlankLines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first\n\n\nsecond\n"))
	}))
	defer server.Close()

	fragments, _, err := newTestClient(server.URL).RespondStream(context.Background(), "q")
	if err != nil {
		t.Fatalf("RespondStream returned error: %v", err)
	}

	var got []string
	for f := range fragments {
		if f.Err != nil {
			t.Fatalf("unexpected stream error: %v", f.Err)
		}
		got = append(got, f.Content)
	}
	if len(got) != 2 || got[0] != "first\n" || got[1] != "second\n" {
		t.Errorf("unexpected fragments %v", got)
	}
}

func TestRespondStreamCancelStopsProducer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for {
			if _, err := w.Write([]byte("line\n")); err != nil {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fragments, _, err := newTestClient(server.URL).RespondStream(ctx, "q")
	if err != nil {
		t.Fatalf("RespondStream returned error: %v", err)
	}

	if f := <-fragments; f.Err != nil || f.Content != "line\n" {
		t.Fatalf("unexpected first fragment %+v", f)
	}

	// Stop consuming, then cancel. The producer must notice on its own and
	// close the channel instead of blocking on the next send forever.
	cancel()
	time.Sleep(100 * time.Millisecond)

	select {
	case f, ok := <-fragments:
		if ok {
			t.Fatalf("producer still sending after cancel: %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream channel not closed after cancel")
	}
}
