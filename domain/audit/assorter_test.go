package audit

import (
	"testing"

	"gorla/internal/testkit"
	"gorla/ports"
)

func TestNewAssorter_RequiresScorer(t *testing.T) {
	if _, err := NewAssorter("mayor", nil, 1); err == nil {
		t.Error("expected error for assorter with no scoring function")
	}
}

func TestNewAssorter_RequiresPositiveBound(t *testing.T) {
	score := func(b ports.BallotRecord) float64 { return 1 }
	if _, err := NewAssorter("mayor", score, 0); err == nil {
		t.Error("expected error for zero upper bound")
	}
	if _, err := NewAssorter("mayor", score, -1); err == nil {
		t.Error("expected error for negative upper bound")
	}
}

func TestNewWinnerLoserAssorter_RequiresBothFuncs(t *testing.T) {
	indicator := func(b ports.BallotRecord) float64 { return 0 }
	if _, err := NewWinnerLoserAssorter("mayor", indicator, nil, 1); err == nil {
		t.Error("expected error when loser indicator is missing")
	}
	if _, err := NewWinnerLoserAssorter("mayor", nil, indicator, 1); err == nil {
		t.Error("expected error when winner indicator is missing")
	}
}

func TestWinnerLoserAssorter_DerivedScore(t *testing.T) {
	winner := func(b ports.BallotRecord) float64 {
		return float64(b.VoteFor("mayor", "Alice"))
	}
	loser := func(b ports.BallotRecord) float64 {
		return float64(b.VoteFor("mayor", "Bob"))
	}
	a, err := NewWinnerLoserAssorter("mayor", winner, loser, 1)
	if err != nil {
		t.Fatalf("NewWinnerLoserAssorter: %v", err)
	}

	pop := testkit.PluralityPopulation("mayor", "Alice", "Bob", 1, 1, 1)
	if got := a.Assort(pop[0]); got != 1 {
		t.Errorf("winner ballot scored %v, want 1", got)
	}
	if got := a.Assort(pop[1]); got != 0 {
		t.Errorf("loser ballot scored %v, want 0", got)
	}
	if got := a.Assort(pop[2]); got != 0.5 {
		t.Errorf("blank ballot scored %v, want 0.5", got)
	}
}
