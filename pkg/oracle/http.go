package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"
)

// Options configures the HTTP oracle client.
type Options struct {
	// BaseURL is the chat-completions-style endpoint root.
	BaseURL string

	// Model is sent with every request.
	Model string

	// APIKeyEnv names the environment variable holding the bearer token.
	APIKeyEnv string

	// Timeout is the per-call HTTP timeout.
	Timeout time.Duration

	// RequestsPerMinute bounds the request rate; 0 disables limiting.
	RequestsPerMinute int

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int

	// BackoffBase is the initial retry delay, doubled per attempt with jitter.
	BackoffBase time.Duration

	// BreakerThreshold opens the circuit after this many consecutive
	// failures; 0 disables the breaker.
	BreakerThreshold int
}

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = "gpt-4.1-mini"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
}

// HTTPDecider adjudicates pairs by calling a chat-completions-style service.
// Every failure mode (timeout, malformed reply, open circuit) degrades to
// Declined; the decider never blocks a stage on oracle health.
type HTTPDecider struct {
	client  *http.Client
	url     string
	apiKey  string
	model   string
	opts    Options
	limiter *Limiter
	breaker *Breaker
	logger  *slog.Logger
}

// NewHTTPDecider builds the HTTP decision strategy.
func NewHTTPDecider(opts Options, logger *slog.Logger) (*HTTPDecider, error) {
	opts.defaults()
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("oracle: base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiKey := ""
	if opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
	}

	return &HTTPDecider{
		client:  &http.Client{Timeout: opts.Timeout},
		url:     strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:  apiKey,
		model:   opts.Model,
		opts:    opts,
		limiter: NewLimiter(opts.RequestsPerMinute, nil),
		breaker: NewBreaker(opts.BreakerThreshold),
		logger:  logger,
	}, nil
}

// Breaker exposes the circuit breaker so the pipeline can report whether the
// run degraded to heuristic-only decisions.
func (d *HTTPDecider) Breaker() *Breaker { return d.breaker }

// Decide sends the query, retrying transient failures with exponential
// backoff and jitter. A tripped breaker, exhausted retries, or an
// uninterpretable reply all return Declined with a nil error.
func (d *HTTPDecider) Decide(ctx context.Context, q Query) (Decision, error) {
	if !d.breaker.Allow() {
		return Declined, nil
	}

	var lastErr error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithJitter(ctx, d.opts.BackoffBase, attempt); err != nil {
				return Declined, err
			}
		}
		if err := d.limiter.Wait(ctx); err != nil {
			return Declined, err
		}

		decision, retryable, err := d.callOnce(ctx, q)
		if err == nil {
			d.breaker.RecordSuccess()
			return decision, nil
		}
		if ctx.Err() != nil {
			return Declined, ctx.Err()
		}
		lastErr = err
		d.breaker.RecordFailure()
		if d.breaker.Open() {
			d.logger.Warn("oracle circuit opened; remainder of run is heuristic-only",
				"failures", d.opts.BreakerThreshold)
			return Declined, nil
		}
		if !retryable {
			break
		}
	}

	d.logger.Warn("oracle call failed", "kind", string(q.Kind), "error", lastErr)
	return Declined, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// oracleReply is the structured object the service is asked to return.
type oracleReply struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// callOnce performs a single HTTP round trip. The retryable flag marks
// transport errors and 429/5xx statuses; malformed bodies are not retried
// because the service answered, just unusably.
func (d *HTTPDecider) callOnce(ctx context.Context, q Query) (Decision, bool, error) {
	body, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(q)},
		},
	})
	if err != nil {
		return Declined, false, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return Declined, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Declined, true, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return Declined, true, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Declined, false, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Declined, true, fmt.Errorf("failed to read oracle response: %w", err)
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil || len(chat.Choices) == 0 {
		return Declined, false, fmt.Errorf("oracle response not interpretable")
	}

	return parseReply(chat.Choices[0].Message.Content), false, nil
}

// parseReply maps the service's free-text content onto a Decision. Anything
// that does not contain a conforming JSON object is a decline.
func parseReply(content string) Decision {
	// The model may wrap the object in prose or a code fence; extract the
	// outermost braces.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Declined
	}

	var reply oracleReply
	if err := json.Unmarshal([]byte(content[start:end+1]), &reply); err != nil {
		return Declined
	}

	decision := Decision{Confidence: reply.Confidence, Reason: reply.Reason}
	switch strings.ToLower(strings.TrimSpace(reply.Decision)) {
	case "yes", "equivalent", "same", "first", "a":
		decision.Answer = AnswerYes
	case "no", "different", "not equivalent", "second", "b":
		decision.Answer = AnswerNo
	default:
		return Declined
	}
	return decision
}

const systemPrompt = `You are a legal-records adjudicator. Answer the user's ` +
	`question about two statute records. Reply with a single JSON object: ` +
	`{"decision": "yes"|"no", "confidence": 0.0-1.0, "reason": "..."}. ` +
	`If you cannot decide, use {"decision": "unknown"}.`

// buildPrompt renders the structured question for a pair.
func buildPrompt(q Query) string {
	var b strings.Builder
	switch q.Kind {
	case QuestionEquivalence:
		b.WriteString("Are these two records versions of the same law?\n\n")
	case QuestionPrecedence:
		b.WriteString("Was record A promulgated before record B?\n\n")
	case QuestionSectionMatch:
		b.WriteString("Are these two sections the same section of the same law, across versions?\n\n")
	}
	writeCandidate(&b, "A", q.A)
	writeCandidate(&b, "B", q.B)
	return b.String()
}

func writeCandidate(b *strings.Builder, label string, c Candidate) {
	fmt.Fprintf(b, "Record %s:\n  Title: %s\n", label, c.Title)
	if c.Jurisdiction != "" {
		fmt.Fprintf(b, "  Jurisdiction: %s\n", c.Jurisdiction)
	}
	if c.DocumentType != "" {
		fmt.Fprintf(b, "  Type: %s\n", c.DocumentType)
	}
	if c.Date != "" {
		fmt.Fprintf(b, "  Date: %s\n", c.Date)
	}
	if c.Snippet != "" {
		snippet := c.Snippet
		if len(snippet) > 400 {
			snippet = snippet[:400] + "..."
		}
		fmt.Fprintf(b, "  Excerpt: %s\n", snippet)
	}
	b.WriteString("\n")
}

// sleepWithJitter waits BackoffBase * 2^(attempt-1) plus up to 25% jitter,
// honoring context cancellation.
func sleepWithJitter(ctx context.Context, base time.Duration, attempt int) error {
	delay := base << (attempt - 1)
	delay += time.Duration(rand.Int63n(int64(delay)/4 + 1))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
