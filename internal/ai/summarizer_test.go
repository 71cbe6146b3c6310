package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/ocr"
)

// fakeProvider replays responses in order; the last one repeats
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	images    int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeProvider) CompleteWithImage(ctx context.Context, prompt string, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	f.images++
	f.mu.Unlock()
	return f.Complete(ctx, prompt)
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestSummarizer(p Provider, attempts uint) *Summarizer {
	return NewSummarizer(p, SummarizerOptions{
		Attempts: attempts,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

const article = "Cats sleep a lot. They also hunt at night. Dogs bark! Is that all? No."

func TestSplitSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Cats sleep a lot.", "They also hunt at night.", "Dogs bark!", "Is that all?", "No."},
		SplitSentences(article))
	assert.Equal(t, []string{"Version 2.1 is out.", "Trailing words"}, SplitSentences("  Version 2.1 is out.  Trailing words  "))
	assert.Empty(t, SplitSentences("   "))
}

func TestSplitSentences_Abbreviations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "titles and initialisms",
			text: "Dr. Smith met Mr. Jones at 9 a.m. in the U.S. office. They agreed.",
			want: []string{"Dr. Smith met Mr. Jones at 9 a.m. in the U.S. office.", "They agreed."},
		},
		{
			name: "decimals and ellipses",
			text: "It costs $3.50 today. Wait... what? Yes.",
			want: []string{"It costs $3.50 today.", "Wait... what?", "Yes."},
		},
		{
			name: "initials, contractions and quotes",
			text: `J. R. R. Tolkien wrote it. I can't. She said "Go." Then left.`,
			want: []string{"J. R. R. Tolkien wrote it.", "I can't.", `She said "Go."`, "Then left."},
		},
		{
			name: "lowercase continuation",
			text: "See fig. 3 for details. the scan was faint.",
			want: []string{"See fig. 3 for details. the scan was faint."},
		},
		{
			name: "aggregated page spacing",
			text: "Budget was approved.  Hiring resumes in May.  ",
			want: []string{"Budget was approved.", "Hiring resumes in May."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestTargetSentenceCount_CountsWholeSentences(t *testing.T) {
	sentences := SplitSentences("Dr. Smith met Mr. Jones at 9 a.m. in the U.S. office. They agreed.")
	assert.Equal(t, 2, TargetSentenceCount(len(sentences), 0.8))
}

func TestTargetSentenceCount(t *testing.T) {
	assert.Equal(t, 0, TargetSentenceCount(0, 0.8))
	assert.Equal(t, 0, TargetSentenceCount(10, 0))
	assert.Equal(t, 8, TargetSentenceCount(10, 0.8))
	assert.Equal(t, 1, TargetSentenceCount(3, 0.1))
	assert.Equal(t, 5, TargetSentenceCount(5, 1))
}

func TestSummarize_KeepsProviderOrder(t *testing.T) {
	p := &fakeProvider{responses: []string{"```json\n{\"sentences\": [3, 1, 3, 9]}\n```"}}
	s := newTestSummarizer(p, 1)

	phrases, err := s.Summarize(context.Background(), article, 0.4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dogs bark!", "Cats sleep a lot."}, phrases)
	require.Equal(t, 1, p.calls())
	assert.Contains(t, p.prompts[0], "Select the 2 sentence(s)")
	assert.Contains(t, p.prompts[0], "4. Is that all?")
}

func TestSummarize_TrimsToTarget(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"sentences": [5, 4, 3, 2, 1]}`}}
	s := newTestSummarizer(p, 1)

	phrases, err := s.Summarize(context.Background(), article, 0.2)
	require.NoError(t, err)
	assert.Equal(t, []string{"No."}, phrases)
}

func TestSummarize_EmptyTextSkipsProvider(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"sentences": [1]}`}}
	s := newTestSummarizer(p, 1)

	phrases, err := s.Summarize(context.Background(), "   ", 0.8)
	require.NoError(t, err)
	assert.Empty(t, phrases)
	assert.Equal(t, 0, p.calls())
}

func TestSummarize_InvalidCompression(t *testing.T) {
	s := newTestSummarizer(&fakeProvider{}, 1)
	for _, c := range []float64{-0.1, 1.01} {
		_, err := s.Summarize(context.Background(), article, c)
		assert.ErrorIs(t, err, ErrInvalidCompression)
	}
}

func TestSummarize_RetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{errors.New("503"), nil},
		responses: []string{"", "not json", `{"sentences": [2]}`},
	}
	s := newTestSummarizer(p, 3)

	phrases, err := s.Summarize(context.Background(), article, 0.2)
	require.NoError(t, err)
	assert.Equal(t, []string{"They also hunt at night."}, phrases)
	assert.Equal(t, 3, p.calls())
}

func TestSummarize_GivesUp(t *testing.T) {
	boom := errors.New("provider down")
	p := &fakeProvider{errs: []error{boom, boom}, responses: []string{""}}
	s := newTestSummarizer(p, 2)

	_, err := s.Summarize(context.Background(), article, 0.8)
	require.Error(t, err)

	var summaryErr *SummaryError
	require.ErrorAs(t, err, &summaryErr)
	assert.Equal(t, "fake", summaryErr.Provider)
	assert.Equal(t, uint(2), summaryErr.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, p.calls())
}

func TestSummarize_ContextCancelled(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"sentences": [1]}`}}
	s := newTestSummarizer(p, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Summarize(ctx, article, 0.8)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var summaryErr *SummaryError
	require.ErrorAs(t, err, &summaryErr)
	assert.LessOrEqual(t, summaryErr.Attempts, uint(1))
}

// cancellingProvider cancels the request context and fails
type cancellingProvider struct {
	fakeProvider
	cancel context.CancelFunc
}

func (p *cancellingProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.cancel()
	_, _ = p.fakeProvider.Complete(ctx, prompt)
	return "", errors.New("connection reset")
}

func TestSummarize_ReportsAttemptsMade(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &cancellingProvider{fakeProvider: fakeProvider{responses: []string{""}}, cancel: cancel}
	s := newTestSummarizer(p, 3)

	_, err := s.Summarize(ctx, article, 0.8)
	require.Error(t, err)

	var summaryErr *SummaryError
	require.ErrorAs(t, err, &summaryErr)
	assert.Equal(t, uint(1), summaryErr.Attempts)
	assert.Equal(t, 1, p.calls())
	assert.Contains(t, err.Error(), "after 1 attempt(s)")
}

func TestVisionRecognizer(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"lines": [
		{"candidates": [{"text": "Hello world", "confidence": 0.9}, {"text": "Hell0 world", "confidence": 0.3}]},
		{"candidates": [{"text": "", "confidence": 0.9}]},
		{"candidates": [{"text": "Foo bar", "confidence": 0.7}]}
	]}`}}
	v := NewVisionRecognizer(p)

	res, err := v.Recognize(context.Background(), []byte("png"), ocr.Accurate)
	require.NoError(t, err)
	assert.Equal(t, "fake-vision", res.Engine)
	require.Len(t, res.Observations, 2)
	assert.Equal(t, []models.Candidate{{Text: "Hello world", Confidence: 0.9}}, res.Observations[0].TopCandidates(1))
	assert.Equal(t, "Foo bar", res.Observations[1].Candidates[0].Text)
	assert.Equal(t, 1, p.images)
}

func TestVisionRecognizer_Malformed(t *testing.T) {
	v := NewVisionRecognizer(&fakeProvider{responses: []string{"I see a cat"}})
	_, err := v.Recognize(context.Background(), []byte("png"), ocr.Fast)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewProvider(t *testing.T) {
	cfg := models.AIConfig{
		OpenAI: models.OpenAIConfig{APIKey: "k", Model: "gpt-4o-mini"},
		Gemini: models.GeminiConfig{APIKey: "g", Model: "gemini-1.5-flash"},
		Ollama: models.OllamaConfig{BaseURL: "http://localhost:11434/", Model: "llama3"},
	}

	for _, name := range []string{"openai", "gemini", "ollama"} {
		p, err := NewProvider(cfg, name, "")
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}

	_, err := NewProvider(cfg, "claude", "")
	assert.ErrorContains(t, err, "unsupported AI provider")
}
