package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidCompression is returned for a compression ratio outside [0,1]
	ErrInvalidCompression = errors.New("compression ratio must be within [0,1]")

	// ErrMalformedResponse means the provider answered but not with a sentence selection
	ErrMalformedResponse = errors.New("malformed summary response")
)

// SummaryError is the final failure of a summary request
type SummaryError struct {
	Provider string
	Attempts uint // calls actually made
	Err      error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summarization via %s failed after %d attempt(s): %v", e.Provider, e.Attempts, e.Err)
}

func (e *SummaryError) Unwrap() error { return e.Err }

// SummarizerOptions tunes retries and pacing
type SummarizerOptions struct {
	Attempts          uint
	RetryDelay        time.Duration
	RequestsPerMinute int
	Logger            *slog.Logger
}

// Summarizer produces extractive summaries: the provider only chooses which
// sentences to keep, the phrases returned are always verbatim source sentences.
type Summarizer struct {
	provider Provider
	limiter  *rate.Limiter
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// NewSummarizer creates a summarizer on top of a provider
func NewSummarizer(provider Provider, opts SummarizerOptions) *Summarizer {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return &Summarizer{
		provider: provider,
		limiter:  limiter,
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		logger:   opts.Logger,
	}
}

// Summarize returns the selected sentences in the order the provider ranked
// them. compression is the fraction of sentences to retain.
func (s *Summarizer) Summarize(ctx context.Context, text string, compression float64) ([]string, error) {
	if math.IsNaN(compression) || compression < 0 || compression > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCompression, compression)
	}

	sentences := SplitSentences(text)
	target := TargetSentenceCount(len(sentences), compression)
	if target == 0 {
		return []string{}, nil
	}

	prompt := buildSummaryPrompt(sentences, target)
	start := time.Now()

	var (
		phrases []string
		tries   uint
	)
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			tries++
			if err := s.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			response, err := s.provider.Complete(ctx, prompt)
			if err != nil {
				return err
			}
			phrases, err = parseSelection(response, sentences, target)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("summary attempt failed", "provider", s.provider.Name(), "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, &SummaryError{Provider: s.provider.Name(), Attempts: tries, Err: err}
	}

	s.logger.Info("summary ready",
		"provider", s.provider.Name(),
		"sentences", len(sentences),
		"selected", len(phrases),
		"duration", time.Since(start),
	)
	return phrases, nil
}

// TargetSentenceCount is how many of n sentences a summary at this compression keeps.
// Any non-empty text with a positive ratio keeps at least one sentence.
func TargetSentenceCount(n int, compression float64) int {
	if n == 0 || compression <= 0 {
		return 0
	}
	target := int(math.Round(float64(n) * compression))
	if target < 1 {
		target = 1
	}
	if target > n {
		target = n
	}
	return target
}

func buildSummaryPrompt(sentences []string, target int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `The text below was scanned from a document and split into %d numbered sentences.
Select the %d sentence(s) that best summarize the document, most important first.
Do not rewrite anything; answer only with the sentence numbers.

Return ONLY valid JSON: {"sentences": [numbers]}

`, len(sentences), target)
	for i, sentence := range sentences {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, sentence)
	}
	return sb.String()
}

// parseSelection maps the provider's 1-based sentence numbers back to the
// verbatim sentences, keeping the provider's order. Unknown or repeated
// numbers are ignored.
func parseSelection(response string, sentences []string, target int) ([]string, error) {
	var raw struct {
		Sentences []int `json:"sentences"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(response)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	seen := make(map[int]bool, len(raw.Sentences))
	phrases := make([]string, 0, target)
	for _, n := range raw.Sentences {
		if n < 1 || n > len(sentences) || seen[n] {
			continue
		}
		seen[n] = true
		phrases = append(phrases, sentences[n-1])
		if len(phrases) == target {
			break
		}
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("%w: no valid sentence numbers", ErrMalformedResponse)
	}
	return phrases, nil
}
