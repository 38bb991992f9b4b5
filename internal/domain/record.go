package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Persisted records carry an explicit schema version so that rows written by
// older releases keep decoding. Three shapes exist in the wild:
//
//	v1 — no created_at, no category; stake side stored as a bool "choice"
//	v2 — adds created_at and category; stake keyed by (market, participant)
//	v3 — current shape (Side as a string enum, participants counter)
//
// Encoding always writes the current version; decoding migrates older shapes
// forward. Records are never rewritten in place — migration happens on read.

const (
	marketRecordVersion = 3
	stakeRecordVersion  = 2
)

// ──────────────────────────────────────────────────────────────────────────────
// Market records
// ──────────────────────────────────────────────────────────────────────────────

type marketRecord struct {
	V            int             `json:"v"`
	ID           uint64          `json:"id"`
	Creator      string          `json:"creator"`
	Question     string          `json:"question"`
	UnlockTime   int64           `json:"unlock_time"` // epoch seconds
	CreatedAt    int64           `json:"created_at,omitempty"`
	YesPool      decimal.Decimal `json:"yes_pool"`
	NoPool       decimal.Decimal `json:"no_pool"`
	Status       string          `json:"status"`
	Winner       *bool           `json:"winner,omitempty"` // true = YES
	Category     string          `json:"category,omitempty"`
	Participants uint32          `json:"participants"`
}

// EncodeMarket serialises a market as a current-version record.
func EncodeMarket(m *Market) ([]byte, error) {
	rec := marketRecord{
		V:            marketRecordVersion,
		ID:           m.ID,
		Creator:      string(m.Creator),
		Question:     m.Question,
		UnlockTime:   m.UnlockTime.Unix(),
		CreatedAt:    m.CreatedAt.Unix(),
		YesPool:      m.YesPool,
		NoPool:       m.NoPool,
		Status:       string(m.Status),
		Category:     string(m.Category),
		Participants: m.Participants,
	}
	if m.Winner != nil {
		yes := *m.Winner == SideYes
		rec.Winner = &yes
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("domain.EncodeMarket: %w", err)
	}
	return data, nil
}

// DecodeMarket deserialises a market record of any known version, migrating
// older shapes to the current one.
func DecodeMarket(data []byte) (*Market, error) {
	var rec marketRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("domain.DecodeMarket: %w", err)
	}
	if rec.V == 0 {
		rec.V = 1 // pre-versioning rows carry no tag
	}
	if rec.V > marketRecordVersion {
		return nil, fmt.Errorf("domain.DecodeMarket: unknown record version %d", rec.V)
	}

	m := &Market{
		ID:           rec.ID,
		Creator:      Address(rec.Creator),
		Question:     rec.Question,
		UnlockTime:   time.Unix(rec.UnlockTime, 0).UTC(),
		YesPool:      rec.YesPool,
		NoPool:       rec.NoPool,
		Status:       MarketStatus(rec.Status),
		Participants: rec.Participants,
	}
	if rec.Winner != nil {
		side := SideNo
		if *rec.Winner {
			side = SideYes
		}
		m.Winner = &side
	}

	switch rec.V {
	case 1:
		// v1 rows predate created_at and category. The zero creation time
		// keeps them permanently outside the cancel window, matching v1
		// semantics (v1 had no cancellation).
		m.CreatedAt = time.Unix(0, 0).UTC()
		m.Category = CategoryOther
	case 2, 3:
		m.CreatedAt = time.Unix(rec.CreatedAt, 0).UTC()
		m.Category = Category(rec.Category)
		if m.Category == "" {
			m.Category = CategoryOther
		}
	}
	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Stake records
// ──────────────────────────────────────────────────────────────────────────────

type stakeRecord struct {
	V           int             `json:"v"`
	Participant string          `json:"participant,omitempty"`
	User        string          `json:"user,omitempty"` // v1 field name
	MarketID    uint64          `json:"market_id"`
	Choice      bool            `json:"choice"` // true = YES
	Amount      decimal.Decimal `json:"amount"`
	Claimed     bool            `json:"claimed"`
	StakedAt    int64           `json:"staked_at,omitempty"`
	Timestamp   int64           `json:"timestamp,omitempty"` // v1 field name
}

// EncodeStake serialises a stake as a current-version record.
func EncodeStake(s *Stake) ([]byte, error) {
	rec := stakeRecord{
		V:           stakeRecordVersion,
		Participant: string(s.Participant),
		MarketID:    s.MarketID,
		Choice:      s.Side == SideYes,
		Amount:      s.Amount,
		Claimed:     s.Claimed,
		StakedAt:    s.StakedAt.Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("domain.EncodeStake: %w", err)
	}
	return data, nil
}

// DecodeStake deserialises a stake record of any known version.
func DecodeStake(data []byte) (*Stake, error) {
	var rec stakeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("domain.DecodeStake: %w", err)
	}
	if rec.V == 0 {
		rec.V = 1
	}
	if rec.V > stakeRecordVersion {
		return nil, fmt.Errorf("domain.DecodeStake: unknown record version %d", rec.V)
	}

	s := &Stake{
		MarketID: rec.MarketID,
		Amount:   rec.Amount,
		Claimed:  rec.Claimed,
	}
	if rec.Choice {
		s.Side = SideYes
	} else {
		s.Side = SideNo
	}

	switch rec.V {
	case 1:
		s.Participant = Address(rec.User)
		s.StakedAt = time.Unix(rec.Timestamp, 0).UTC()
	case 2:
		s.Participant = Address(rec.Participant)
		s.StakedAt = time.Unix(rec.StakedAt, 0).UTC()
	}
	return s, nil
}
