package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"pizzeria-rag/internal/llmservice"
	"pizzeria-rag/internal/models"
)

type fakeQuerier struct {
	err error
}

func (q *fakeQuerier) Query(_ context.Context, question string) (*models.PromptResponse, error) {
	if q.err != nil {
		return nil, q.err
	}
	return &models.PromptResponse{
		Query:   question,
		Content: "La **Margherita** contient du lait.",
		Matches: []models.Match{{Content: "Nom du plat : Margherita"}},
	}, nil
}

func postForm(t *testing.T, s *Server, path string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "Chatbot Polo")
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body(t, resp) != "ok" {
		t.Fatalf("unexpected health response: %d", resp.StatusCode)
	}
}

func TestChat_AppendsTurnAndRenders(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "Chatbot Polo")

	resp := postForm(t, s, "/chat", url.Values{"message": {"Allergènes de la Margherita ?"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	turns := s.Transcript()
	if len(turns) != 1 || turns[0].Question != "Allergènes de la Margherita ?" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	html := body(t, resp)
	if !strings.Contains(html, "<title>Chatbot Polo</title>") {
		t.Errorf("missing title")
	}
	if !strings.Contains(html, "<strong>Margherita</strong>") {
		t.Errorf("answer not rendered as HTML: %s", html)
	}
}

func TestChat_BlankMessageIgnored(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "t")
	postForm(t, s, "/chat", url.Values{"message": {"   "}})
	if n := len(s.Transcript()); n != 0 {
		t.Fatalf("expected empty transcript, got %d turns", n)
	}
}

func TestChat_StatusErrorShownAsAnswer(t *testing.T) {
	s := NewServer(&fakeQuerier{err: &llmservice.StatusError{StatusCode: 500, Body: "boom"}}, "t")
	postForm(t, s, "/chat", url.Values{"message": {"prix ?"}})
	turns := s.Transcript()
	if len(turns) != 1 || turns[0].Answer != "Erreur lors de la génération : boom" {
		t.Fatalf("unexpected transcript: %+v", turns)
	}
}

func TestReset(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "t")
	postForm(t, s, "/chat", url.Values{"message": {"q"}})
	postForm(t, s, "/reset", url.Values{})
	if n := len(s.Transcript()); n != 0 {
		t.Fatalf("expected empty transcript after reset, got %d", n)
	}
}

func askJSON(t *testing.T, s *Server, payload string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAsk(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "t")
	resp := askJSON(t, s, `{"question":"Margherita ?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Answer == "" || len(out.Sources) != 1 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if len(s.Transcript()) != 0 {
		t.Errorf("API calls should not touch the transcript")
	}
}

func TestAsk_Errors(t *testing.T) {
	s := NewServer(&fakeQuerier{}, "t")
	if resp := askJSON(t, s, `{"question":""}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty question: expected 400, got %d", resp.StatusCode)
	}

	s = NewServer(&fakeQuerier{err: errors.New("connection refused")}, "t")
	if resp := askJSON(t, s, `{"question":"q"}`); resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("store failure: expected 500, got %d", resp.StatusCode)
	}
}
