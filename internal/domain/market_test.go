package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/outcomely/timelock/internal/domain"
)

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		wantErr  bool
	}{
		{"too short", strings.Repeat("x", 9), true},
		{"minimum length", strings.Repeat("x", 10), false},
		{"maximum length", strings.Repeat("x", 200), false},
		{"too long", strings.Repeat("x", 201), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateQuestion(tt.question)
			if tt.wantErr && !errors.Is(err, domain.ErrQuestionLength) {
				t.Errorf("err = %v, want ErrQuestionLength", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSideIsValid(t *testing.T) {
	if !domain.SideYes.IsValid() || !domain.SideNo.IsValid() {
		t.Error("YES and NO must be valid sides")
	}
	if domain.Side("MAYBE").IsValid() {
		t.Error("MAYBE must not be a valid side")
	}
	if domain.Side("yes").IsValid() {
		t.Error("sides are case sensitive; lowercase yes must be rejected")
	}
}

func TestCategoryIsValid(t *testing.T) {
	valid := []domain.Category{
		domain.CategoryFinance, domain.CategoryTechnology, domain.CategorySports,
		domain.CategoryPolitics, domain.CategoryEntertainment, domain.CategoryOther,
	}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("category %q must be valid", c)
		}
	}
	if domain.Category("crypto").IsValid() {
		t.Error("unknown category must be rejected")
	}
	if domain.Category("").IsValid() {
		t.Error("empty category must be rejected")
	}
}

// TestMarketExpired pins the boundary: staking requires now strictly before
// the unlock time, so a market is expired at exactly unlock_time.
func TestMarketExpired(t *testing.T) {
	unlock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &domain.Market{UnlockTime: unlock}

	if m.Expired(unlock.Add(-time.Second)) {
		t.Error("one second before unlock must not be expired")
	}
	if !m.Expired(unlock) {
		t.Error("exactly at unlock must be expired")
	}
	if !m.Expired(unlock.Add(time.Second)) {
		t.Error("after unlock must be expired")
	}
}

func TestMarketPools(t *testing.T) {
	m := &domain.Market{Status: domain.StatusOpen}
	m.AddToPool(domain.SideYes, dec(100))
	m.AddToPool(domain.SideNo, dec(250))
	m.AddToPool(domain.SideYes, dec(50))

	if !m.PoolFor(domain.SideYes).Equal(dec(150)) {
		t.Errorf("yes pool = %s, want 150", m.YesPool)
	}
	if !m.PoolFor(domain.SideNo).Equal(dec(250)) {
		t.Errorf("no pool = %s, want 250", m.NoPool)
	}
	if !m.TotalPool().Equal(dec(400)) {
		t.Errorf("total pool = %s, want 400", m.TotalPool())
	}
}

func TestMarketStatusPredicates(t *testing.T) {
	m := &domain.Market{Status: domain.StatusOpen}
	if !m.IsOpen() || m.IsResolved() || m.IsTerminal() {
		t.Error("open market predicates wrong")
	}
	m.Status = domain.StatusResolved
	if m.IsOpen() || !m.IsResolved() || !m.IsTerminal() {
		t.Error("resolved market predicates wrong")
	}
	m.Status = domain.StatusCancelled
	if m.IsOpen() || m.IsResolved() || !m.IsTerminal() {
		t.Error("cancelled market predicates wrong")
	}
}

func TestStakeWon(t *testing.T) {
	yes := domain.SideYes
	resolved := &domain.Market{Status: domain.StatusResolved, Winner: &yes}
	open := &domain.Market{Status: domain.StatusOpen}

	winner := &domain.Stake{Side: domain.SideYes}
	loser := &domain.Stake{Side: domain.SideNo}

	if !winner.Won(resolved) {
		t.Error("YES stake on YES-resolved market must win")
	}
	if loser.Won(resolved) {
		t.Error("NO stake on YES-resolved market must not win")
	}
	if winner.Won(open) {
		t.Error("no stake wins on an unresolved market")
	}
}
