package tokenizer

import (
	"errors"
	"testing"
)

type testCounter struct{}

func (testCounter) Name() string { return "stub" }

func (testCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type failingCounter struct{}

func (failingCounter) Name() string { return "failing" }

func (failingCounter) CountString(string) (int, error) { return 0, errors.New("encode failed") }

func TestCountLines(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected int
	}{
		{name: "empty", content: "", expected: 0},
		{name: "single unterminated", content: "abc", expected: 1},
		{name: "single terminated", content: "abc\n", expected: 1},
		{name: "two lines unterminated", content: "a\nb", expected: 2},
		{name: "blank lines", content: "\n\n", expected: 2},
		{name: "crlf", content: "a\r\nb\r\n", expected: 2},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if actual := CountLines(testCase.content); actual != testCase.expected {
				t.Fatalf("expected %d lines, got %d", testCase.expected, actual)
			}
		})
	}
}

func TestAccountantAccount(t *testing.T) {
	accountant := Accountant{Counter: testCounter{}, Limit: 5}

	withinLimit := accountant.Account("hello")
	if !withinLimit.Counted || withinLimit.Tokens != 5 || withinLimit.OverLimit {
		t.Fatalf("unexpected accounting %+v", withinLimit)
	}
	if withinLimit.Lines != 1 {
		t.Fatalf("expected 1 line, got %d", withinLimit.Lines)
	}

	overLimit := accountant.Account("hello!\n")
	if !overLimit.OverLimit {
		t.Fatalf("expected over-limit accounting, got %+v", overLimit)
	}
}

func TestAccountantLimitDisabled(t *testing.T) {
	accountant := Accountant{Counter: testCounter{}, Limit: 0}
	if accounting := accountant.Account("a very long string indeed"); accounting.OverLimit {
		t.Fatalf("expected no flagging with a non-positive limit")
	}
}

func TestAccountantCounterFailure(t *testing.T) {
	accountant := Accountant{Counter: failingCounter{}, Limit: 1}
	accounting := accountant.Account("line\n")
	if accounting.Counted {
		t.Fatalf("expected uncounted accounting")
	}
	if accounting.Err == nil {
		t.Fatalf("expected counter error to be retained")
	}
	if accounting.Tokens != 0 || accounting.OverLimit {
		t.Fatalf("uncounted files must carry no tokens, got %+v", accounting)
	}
	if accounting.Lines != 1 {
		t.Fatalf("expected lines to be counted regardless, got %d", accounting.Lines)
	}
}

func TestUnavailableCounter(t *testing.T) {
	cause := errors.New("no encoding")
	accounting := Accountant{Counter: UnavailableCounter{Cause: cause}}.Account("text")
	if accounting.Counted || !errors.Is(accounting.Err, cause) {
		t.Fatalf("expected the initialization error, got %+v", accounting)
	}
}

func TestNewCounterDefault(t *testing.T) {
	if testing.Short() {
		t.Skip("tokenizer encodings may need to be fetched")
	}
	counter, encodingName, err := NewCounter(Config{})
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	if encodingName != DefaultEncodingName {
		t.Fatalf("expected %s, got %q", DefaultEncodingName, encodingName)
	}
	tokens, err := counter.CountString("hello world")
	if err != nil {
		t.Fatalf("CountString error: %v", err)
	}
	if tokens <= 0 {
		t.Fatalf("expected positive token count, got %d", tokens)
	}
}

func TestNewCounterUnknownModelFallsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("tokenizer encodings may need to be fetched")
	}
	_, encodingName, err := NewCounter(Config{Model: "not-a-real-model"})
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	if encodingName != fallbackEncodingName {
		t.Fatalf("expected fallback %s, got %q", fallbackEncodingName, encodingName)
	}
}
