package section

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestResult_Serialize(t *testing.T) {
	result := Result{
		{ID: 1, Type: "season_spring", Content: "Spring is warm."},
		{ID: 2, Type: "season_summer", Content: "Summer <hot> & dry."},
	}

	got, err := result.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `[
  {
    "id": 1,
    "type": "season_spring",
    "content": "Spring is warm."
  },
  {
    "id": 2,
    "type": "season_summer",
    "content": "Summer <hot> & dry."
  }
]`
	if got != want {
		t.Errorf("Serialize() mismatch\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestResult_SerializeNil(t *testing.T) {
	var result Result
	got, err := result.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[]" {
		t.Errorf("expected [], got %q", got)
	}
}

func TestResult_Types(t *testing.T) {
	result := Result{
		{ID: 1, Type: "intro"},
		{ID: 2, Type: "method"},
		{ID: 3, Type: "intro"},
	}

	got := result.Types()
	if len(got) != 2 || got[0] != "intro" || got[1] != "method" {
		t.Errorf("unexpected types: %v", got)
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:    KindTransportClientError,
		Stage:   StageNetwork,
		Status:  404,
		Message: "not found",
	}

	got := err.Error()
	for _, part := range []string{"TransportClientError", "network", "404", "not found"} {
		if !strings.Contains(got, part) {
			t.Errorf("expected %q in %q", part, got)
		}
	}
}

func TestWithStage(t *testing.T) {
	t.Run("tags untagged error", func(t *testing.T) {
		base := NewError(KindExtractionSchemaError, "", ErrUnitInvalid)
		tagged := WithStage(base, StageParse)

		if StageOf(tagged) != StageParse {
			t.Errorf("expected stage parse, got %q", StageOf(tagged))
		}
		if KindOf(tagged) != KindExtractionSchemaError {
			t.Errorf("expected kind preserved, got %q", KindOf(tagged))
		}
		if !errors.Is(tagged, ErrUnitInvalid) {
			t.Error("expected sentinel to remain reachable")
		}
		if base.Stage != "" {
			t.Error("WithStage must not mutate the original error")
		}
	})

	t.Run("keeps existing stage", func(t *testing.T) {
		base := &Error{Kind: KindTransportTimeout, Stage: StageNetwork}
		if StageOf(WithStage(base, StageParse)) != StageNetwork {
			t.Error("existing stage was overwritten")
		}
	})

	t.Run("wraps plain errors as unexpected", func(t *testing.T) {
		tagged := WithStage(context.Canceled, StageNetwork)
		if KindOf(tagged) != KindUnexpected {
			t.Errorf("expected UnexpectedError, got %q", KindOf(tagged))
		}
		if !errors.Is(tagged, context.Canceled) {
			t.Error("expected cause to remain reachable")
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if WithStage(nil, StageParse) != nil {
			t.Error("expected nil")
		}
	})
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", &Error{Kind: KindTransportTimeout}, http.StatusGatewayTimeout},
		{"client passthrough", &Error{Kind: KindTransportClientError, Status: 401}, 401},
		{"server passthrough", &Error{Kind: KindTransportServerError, Status: 503}, 503},
		{"client without status", &Error{Kind: KindTransportClientError}, http.StatusBadGateway},
		{"envelope", &Error{Kind: KindExtractionEnvelopeError}, http.StatusInternalServerError},
		{"schema", &Error{Kind: KindExtractionSchemaError}, http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", &Error{Kind: KindTransportTimeout}), http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindTransportTimeout:           true,
		KindTransportServerError:       true,
		KindTransportClientError:       false,
		KindExtractionEnvelopeError:    false,
		KindExtractionBoundaryNotFound: false,
		KindExtractionSchemaError:      false,
		KindUnexpected:                 false,
	}
	for kind, want := range retryable {
		if kind.Retryable() != want {
			t.Errorf("%s.Retryable() = %v, want %v", kind, !want, want)
		}
	}
}
