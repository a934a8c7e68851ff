package tokenizer

import (
	"errors"
	"strings"
)

// DefaultTokenLimit is the per-file token count above which a file is flagged.
const DefaultTokenLimit = 10000

var errNilCounter = errors.New("nil tokenizer counter")

// Accounting is the size information recorded for one file.
type Accounting struct {
	Lines  int
	Tokens int
	// Counted is false when the counter failed; Tokens is then zero.
	Counted bool
	// OverLimit marks counted files whose token count exceeds the limit.
	OverLimit bool
	// Err holds the counter failure when Counted is false.
	Err error
}

// Accountant measures content with a Counter and flags files above Limit.
// A non-positive Limit disables flagging.
type Accountant struct {
	Counter Counter
	Limit   int
}

// Account measures content. Counter failures never abort; they yield an
// uncounted Accounting carrying the error.
func (accountant Accountant) Account(content string) Accounting {
	accounting := Accounting{Lines: CountLines(content)}
	if accountant.Counter == nil {
		accounting.Err = errNilCounter
		return accounting
	}
	tokens, countError := accountant.Counter.CountString(content)
	if countError != nil {
		accounting.Err = countError
		return accounting
	}
	accounting.Tokens = tokens
	accounting.Counted = true
	accounting.OverLimit = accountant.IsOverLimit(tokens)
	return accounting
}

// IsOverLimit reports whether tokens exceeds the configured limit.
func (accountant Accountant) IsOverLimit(tokens int) bool {
	return accountant.Limit > 0 && tokens > accountant.Limit
}

// CountLines returns the number of newline-terminated segments plus one for a
// non-empty trailing segment without a newline.
func CountLines(content string) int {
	lines := strings.Count(content, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		lines++
	}
	return lines
}
