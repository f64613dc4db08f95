// Package oracle provides the adjudication-oracle collaborator: an external
// natural-language service that breaks heuristic ties during entity
// resolution. The engine talks to it through the Decider interface so the
// oracle can be disabled or scripted for deterministic runs; every caller
// treats a declined or failed answer as its fail-closed structural default.
package oracle

import (
	"context"
)

// QuestionKind identifies what the engine is asking about a candidate pair.
type QuestionKind string

const (
	// QuestionEquivalence asks whether two statutes are versions of the same law.
	QuestionEquivalence QuestionKind = "equivalence"

	// QuestionPrecedence asks which of two statutes came first.
	QuestionPrecedence QuestionKind = "precedence"

	// QuestionSectionMatch asks whether two sections are the same section
	// across versions.
	QuestionSectionMatch QuestionKind = "section-match"
)

// Answer is the oracle's decision for a pair.
type Answer string

const (
	// AnswerYes affirms the question (equivalent / A first / same section).
	AnswerYes Answer = "yes"

	// AnswerNo denies the question.
	AnswerNo Answer = "no"

	// AnswerDeclined means the oracle gave no usable decision; the caller
	// must fall back to its structural default.
	AnswerDeclined Answer = "declined"
)

// Candidate carries the metadata the oracle sees for one side of a pair.
type Candidate struct {
	Title        string `json:"title"`
	Snippet      string `json:"snippet,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Date         string `json:"date,omitempty"`
}

// Query is one adjudication request: a question kind plus both candidates.
type Query struct {
	Kind QuestionKind `json:"kind"`
	A    Candidate    `json:"a"`
	B    Candidate    `json:"b"`
}

// Decision is the oracle's structured response. Any non-conforming service
// reply is mapped to AnswerDeclined before it reaches a stage.
type Decision struct {
	Answer     Answer  `json:"answer"`
	Confidence float64 `json:"confidence,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// Declined is the decision used for every unavailable or uninterpretable
// answer.
var Declined = Decision{Answer: AnswerDeclined}

// Decider is the decision-strategy interface. Implementations must be safe
// for concurrent use by batch workers.
type Decider interface {
	// Decide adjudicates one pair. Implementations return Declined rather
	// than an error for service-side failures; an error is reserved for
	// context cancellation.
	Decide(ctx context.Context, q Query) (Decision, error)
}

// HeuristicDecider declines every question, forcing each stage onto its
// structural default. It is the configured strategy when the oracle is
// disabled and the baseline for fail-closed tests.
type HeuristicDecider struct{}

// Decide always declines.
func (HeuristicDecider) Decide(ctx context.Context, q Query) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Declined, err
	}
	return Declined, nil
}

// FuncDecider adapts a function to the Decider interface; used by tests to
// script oracle behavior.
type FuncDecider func(ctx context.Context, q Query) (Decision, error)

// Decide calls the wrapped function.
func (f FuncDecider) Decide(ctx context.Context, q Query) (Decision, error) {
	return f(ctx, q)
}
