package override

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/coolbeans/lexchain/pkg/oracle"
)

func TestLookupOrderIndependent(t *testing.T) {
	registry, err := Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := registry.Add(Entry{
		Kind:   oracle.QuestionEquivalence,
		KeyA:   "Anti-Terrorism Act, 1997",
		KeyB:   "Anti-Terrorism (Amendment) Act, 1999",
		Answer: oracle.AnswerYes,
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	answer, ok := registry.Lookup(oracle.QuestionEquivalence,
		"anti-terrorism (amendment) act, 1999", "ANTI-TERRORISM ACT, 1997")
	if !ok {
		t.Fatal("Expected hit for reversed, differently-cased pair")
	}
	if answer != oracle.AnswerYes {
		t.Errorf("Expected yes, got %s", answer)
	}
}

func TestRoundTripThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")

	registry, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := registry.Add(Entry{
		Kind:   oracle.QuestionSectionMatch,
		KeyA:   "anti terrorism s. 6",
		KeyB:   "anti terrorism s. 6A",
		Answer: oracle.AnswerNo,
		Note:   "renumbered, different offence",
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	answer, ok := reloaded.Lookup(oracle.QuestionSectionMatch,
		"anti terrorism s. 6", "anti terrorism s. 6A")
	if !ok || answer != oracle.AnswerNo {
		t.Errorf("Expected persisted no, got %s ok=%v", answer, ok)
	}
	if len(reloaded.List()) != 1 {
		t.Errorf("Expected 1 entry after reload, got %d", len(reloaded.List()))
	}
}

func TestRemove(t *testing.T) {
	registry, _ := Open("")
	registry.Add(Entry{Kind: oracle.QuestionEquivalence, KeyA: "a", KeyB: "b", Answer: oracle.AnswerYes})

	if err := registry.Remove(oracle.QuestionEquivalence, "b", "a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := registry.Lookup(oracle.QuestionEquivalence, "a", "b"); ok {
		t.Error("Expected entry gone after remove")
	}
	// Removing a missing entry is a no-op.
	if err := registry.Remove(oracle.QuestionEquivalence, "x", "y"); err != nil {
		t.Errorf("Remove of missing entry failed: %v", err)
	}
}

func TestDeciderPrefersOverride(t *testing.T) {
	registry, _ := Open("")
	registry.Add(Entry{
		Kind:   oracle.QuestionEquivalence,
		KeyA:   "Electoral Reform Act",
		KeyB:   "Electoral Reforms Act",
		Answer: oracle.AnswerNo,
	})

	inner := oracle.FuncDecider(func(ctx context.Context, q oracle.Query) (oracle.Decision, error) {
		t.Error("Inner decider must not run when an override exists")
		return oracle.Decision{Answer: oracle.AnswerYes}, nil
	})
	decider := NewDecider(registry, inner)

	decision, err := decider.Decide(context.Background(), oracle.Query{
		Kind: oracle.QuestionEquivalence,
		A:    oracle.Candidate{Title: "Electoral Reforms Act"},
		B:    oracle.Candidate{Title: "Electoral Reform Act"},
	})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decision.Answer != oracle.AnswerNo {
		t.Errorf("Expected override answer no, got %s", decision.Answer)
	}
	if decision.Confidence != 1.0 {
		t.Errorf("Expected full confidence for an override, got %.2f", decision.Confidence)
	}
}

func TestDeciderDelegatesWithoutOverride(t *testing.T) {
	registry, _ := Open("")
	inner := oracle.FuncDecider(func(ctx context.Context, q oracle.Query) (oracle.Decision, error) {
		return oracle.Decision{Answer: oracle.AnswerDeclined}, nil
	})
	decider := NewDecider(registry, inner)

	decision, err := decider.Decide(context.Background(), oracle.Query{
		Kind: oracle.QuestionEquivalence,
		A:    oracle.Candidate{Title: "a"},
		B:    oracle.Candidate{Title: "b"},
	})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decision.Answer != oracle.AnswerDeclined {
		t.Errorf("Expected delegated decline, got %s", decision.Answer)
	}
}
