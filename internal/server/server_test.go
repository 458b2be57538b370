package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/textstruct/core/process"
	"github.com/leofalp/textstruct/core/section"
	"github.com/leofalp/textstruct/core/structurer"
	"github.com/leofalp/textstruct/core/transport"
	"github.com/leofalp/textstruct/internal/diag"
	"github.com/leofalp/textstruct/internal/htmltext"
	"github.com/leofalp/textstruct/providers/ai/anthropic"
)

type runnerFunc func(ctx context.Context, req process.Request) (*section.CombinedResponse, error)

func (f runnerFunc) Run(ctx context.Context, req process.Request) (*section.CombinedResponse, error) {
	return f(ctx, req)
}

func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/structure_texts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestStructureTexts_Success(t *testing.T) {
	var got process.Request
	runner := runnerFunc(func(_ context.Context, req process.Request) (*section.CombinedResponse, error) {
		got = req
		return &section.CombinedResponse{
			ProcessID:   "8d1f0a52-3f0e-4c1b-9a57-2f4a6f0c1d2e",
			StructuredA: section.Result{{ID: 1, Type: "season_spring", Content: "Spring is warm."}},
			StructuredB: section.Result{{ID: 1, Type: "season_autumn", Content: "Autumn is cool."}},
		}, nil
	})

	rec := post(t, New(runner, nil).Handler(), `{"textA":"Spring is warm.","textB":"Autumn is cool."}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	if got.TextA != "Spring is warm." || got.TextB != "Autumn is cool." || got.Format != htmltext.FormatText {
		t.Errorf("unexpected runner input: %+v", got)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	for _, key := range []string{"processId", "structuredA", "structuredB"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing %q in %s", key, rec.Body.String())
		}
	}
}

func TestStructureTexts_BadRequests(t *testing.T) {
	runner := runnerFunc(func(_ context.Context, req process.Request) (*section.CombinedResponse, error) {
		if err := req.Validate(); err != nil {
			return nil, err
		}
		t.Error("runner must not be reached")
		return nil, nil
	})
	handler := New(runner, nil, WithMaxBodyBytes(64)).Handler()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `textA=x`},
		{"wrong type", `{"textA": 1, "textB": "b"}`},
		{"empty text", `{"textA": "", "textB": "b"}`},
		{"missing text", `{"textA": "a"}`},
		{"unknown format", `{"textA": "a", "textB": "b", "format": "pdf"}`},
		{"too large", `{"textA": "` + strings.Repeat("a", 100) + `", "textB": "b"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if decodeError(t, rec).Detail == "" {
				t.Error("expected a detail message")
			}
		})
	}
}

func TestStructureTexts_ErrorMapping(t *testing.T) {
	const processID = "8d1f0a52-3f0e-4c1b-9a57-2f4a6f0c1d2e"

	tests := []struct {
		name   string
		err    error
		status int
		kind   section.Kind
	}{
		{
			name:   "timeout",
			err:    &section.Error{Kind: section.KindTransportTimeout, Stage: section.StageNetwork},
			status: http.StatusGatewayTimeout,
			kind:   section.KindTransportTimeout,
		},
		{
			name:   "upstream client error",
			err:    &section.Error{Kind: section.KindTransportClientError, Stage: section.StageNetwork, Status: 401},
			status: http.StatusUnauthorized,
			kind:   section.KindTransportClientError,
		},
		{
			name:   "upstream server error",
			err:    &section.Error{Kind: section.KindTransportServerError, Stage: section.StageNetwork, Status: 529},
			status: 529,
			kind:   section.KindTransportServerError,
		},
		{
			name:   "extraction",
			err:    &section.Error{Kind: section.KindExtractionSchemaError, Stage: section.StageParse, Err: section.ErrUnitInvalid},
			status: http.StatusInternalServerError,
			kind:   section.KindExtractionSchemaError,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			kind:   section.KindUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := runnerFunc(func(context.Context, process.Request) (*section.CombinedResponse, error) {
				return nil, &process.RunError{ProcessID: processID, State: process.StateStarted, Err: tt.err}
			})

			rec := post(t, New(runner, nil).Handler(), `{"textA":"a","textB":"b"}`)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}

			body := decodeError(t, rec)
			if body.Kind != string(tt.kind) {
				t.Errorf("kind = %q, want %q", body.Kind, tt.kind)
			}
			if body.ProcessID != processID {
				t.Errorf("processId = %q", body.ProcessID)
			}
			if body.Detail != tt.err.Error() {
				t.Errorf("detail = %q, want %q", body.Detail, tt.err.Error())
			}
		})
	}
}

func TestDebugInfo(t *testing.T) {
	store, err := diag.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	id := uuid.NewString()
	log, err := store.Open(id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Info("Structuring text A")
	_ = log.Close()

	handler := New(nil, store).Handler()

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug_info/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body DebugInfo
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if !strings.Contains(body.DebugInfo, "Structuring text A") {
			t.Errorf("unexpected debug info: %q", body.DebugInfo)
		}
		if _, err := time.Parse(time.RFC3339, body.LastModified); err != nil {
			t.Errorf("last_modified is not RFC3339: %q", body.LastModified)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug_info/"+uuid.NewString(), nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if decodeError(t, rec).Detail != "Debug info not found" {
			t.Errorf("unexpected body %s", rec.Body.String())
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug_info/not-a-uuid", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(nil, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	New(nil, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/structure_texts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	runner := runnerFunc(func(context.Context, process.Request) (*section.CombinedResponse, error) {
		return &section.CombinedResponse{ProcessID: "id"}, nil
	})
	handler := New(runner, nil, WithAllowedOrigins("http://localhost:3000")).Handler()

	t.Run("preflight allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/structure_texts", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		h := rec.Header()
		if h.Get("Access-Control-Allow-Origin") != "http://localhost:3000" ||
			h.Get("Access-Control-Allow-Credentials") != "true" ||
			!strings.Contains(h.Get("Access-Control-Allow-Methods"), "POST") ||
			h.Get("Access-Control-Allow-Headers") != "content-type" {
			t.Errorf("unexpected preflight headers: %v", h)
		}
	})

	t.Run("simple request allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/structure_texts", strings.NewReader(`{"textA":"a","textB":"b"}`))
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
			t.Errorf("missing CORS header: %v", rec.Header())
		}
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/structure_texts", nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "" {
			t.Errorf("origin must not be allowed: %v", rec.Header())
		}
	})
}

// TestEndToEnd wires the real processor, structurer and diagnostic store
// against a fake Messages API and checks that text B is structured with
// text A's result as the example.
func TestEndToEnd(t *testing.T) {
	var prompts []string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request anthropic.Request
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("invalid upstream request: %v", err)
		}
		prompts = append(prompts, request.Messages[0].Content)

		text := `[{"id":1,"type":"season_spring","content":"Spring is warm."},{"id":2,"type":"season_summer","content":"Summer is hot."}]`
		if len(prompts) == 2 {
			text = `Sure: [{"id":1,"type":"season_autumn","content":"Autumn is cool."}]`
		}
		encoded, _ := json.Marshal(anthropic.Response{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}})
		_, _ = w.Write(encoded)
	}))
	defer upstream.Close()

	store, err := diag.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	config := structurer.DefaultConfig()
	config.BaseURL = upstream.URL
	config.APIKey = "sk-test"
	processor := process.New(structurer.New(transport.New(), config), store)
	server := httptest.NewServer(New(processor, store).Handler())
	defer server.Close()

	res, err := http.Post(server.URL+"/structure_texts", "application/json",
		strings.NewReader(`{"textA":"Spring is warm. Summer is hot.","textB":"Autumn is cool."}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(res.Body)
		t.Fatalf("expected 200, got %d: %s", res.StatusCode, raw)
	}
	var combined section.CombinedResponse
	if err := json.NewDecoder(res.Body).Decode(&combined); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(combined.StructuredA) != 2 || len(combined.StructuredB) != 1 || combined.StructuredB[0].Type != "season_autumn" {
		t.Errorf("unexpected response: %+v", combined)
	}

	example, _ := combined.StructuredA.Serialize()
	if len(prompts) != 2 || !strings.Contains(prompts[1], example) {
		t.Errorf("text B prompt does not carry text A's result:\n%v", prompts)
	}

	debug, err := http.Get(server.URL + "/debug_info/" + combined.ProcessID)
	if err != nil {
		t.Fatalf("debug request failed: %v", err)
	}
	defer debug.Body.Close()
	if debug.StatusCode != http.StatusOK {
		t.Errorf("expected debug info for %s, got %d", combined.ProcessID, debug.StatusCode)
	}
}
