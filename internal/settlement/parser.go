// Package settlement normalizes raw venue settlement documents into a flat,
// fully-typed shape the rest of the core can rely on.
package settlement

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TradeOutcome is the minimal result the strategy consumes.
type TradeOutcome struct {
	Won          bool
	Stake        float64
	Profit       float64
	SignedProfit float64
}

// Settlement is the flattened terminal state of a purchased contract.
// Monetary pairs are flattened to value + one shared currency; all times are
// epoch seconds regardless of the unit the venue reported them in.
type Settlement struct {
	ContractID int64
	Symbol     string
	Status     string
	Currency   string

	BuyPrice  float64
	SellPrice float64
	Payout    float64
	EntrySpot float64
	ExitSpot  float64

	ProfitSign  int
	ProfitValue float64
	ProfitPct   float64

	PurchaseTime int64
	ExpiryTime   int64
	SettledTime  int64

	Outcome TradeOutcome
}

// MalformedSettlementError reports which required fields were absent.
type MalformedSettlementError struct {
	Missing []string
}

func (e *MalformedSettlementError) Error() string {
	return fmt.Sprintf("malformed settlement: missing %s", strings.Join(e.Missing, ", "))
}

const (
	StatusWon  = "won"
	StatusLost = "lost"
)

type rawMoney struct {
	Currency string   `json:"currency"`
	Value    *float64 `json:"value"`
}

type rawProfit struct {
	Sign       *int     `json:"sign"`
	Value      *float64 `json:"value"`
	Currency   string   `json:"currency"`
	Percentage *float64 `json:"percentage"`
}

// rawTime carries a unit-tagged timestamp; the venue mixes seconds and
// milliseconds across fields.
type rawTime struct {
	Unit  string `json:"unit"`
	Value *int64 `json:"value"`
}

type rawDocument struct {
	ContractID *int64 `json:"contract_id"`
	Underlying struct {
		Symbol *string `json:"symbol"`
	} `json:"underlying"`
	Status       *string    `json:"status"`
	BuyPrice     *rawMoney  `json:"buy_price"`
	SellPrice    *rawMoney  `json:"sell_price"`
	Payout       *rawMoney  `json:"payout"`
	EntrySpot    *float64   `json:"entry_spot"`
	ExitSpot     *float64   `json:"exit_spot"`
	Profit       *rawProfit `json:"profit"`
	PurchaseTime *rawTime   `json:"purchase_time"`
	ExpiryTime   *rawTime   `json:"expiry_time"`
	SettledTime  *rawTime   `json:"settled_time"`
}

// Parse converts a raw settlement document into a Settlement. It is total on
// well-formed input and fails with MalformedSettlementError when any required
// field (symbol, prices, profit sign/value, status) is absent. Missing
// optional fields are zero-valued, never guessed.
func Parse(raw []byte) (Settlement, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Settlement{}, fmt.Errorf("decode settlement: %w", err)
	}

	var missing []string
	if doc.Underlying.Symbol == nil || *doc.Underlying.Symbol == "" {
		missing = append(missing, "underlying.symbol")
	}
	if doc.Status == nil || *doc.Status == "" {
		missing = append(missing, "status")
	}
	if doc.BuyPrice == nil || doc.BuyPrice.Value == nil {
		missing = append(missing, "buy_price.value")
	}
	if doc.Payout == nil || doc.Payout.Value == nil {
		missing = append(missing, "payout.value")
	}
	if doc.Profit == nil || doc.Profit.Sign == nil {
		missing = append(missing, "profit.sign")
	}
	if doc.Profit == nil || doc.Profit.Value == nil {
		missing = append(missing, "profit.value")
	}
	if len(missing) > 0 {
		return Settlement{}, &MalformedSettlementError{Missing: missing}
	}

	s := Settlement{
		Symbol:      *doc.Underlying.Symbol,
		Status:      *doc.Status,
		Currency:    doc.BuyPrice.Currency,
		BuyPrice:    *doc.BuyPrice.Value,
		Payout:      *doc.Payout.Value,
		ProfitSign:  *doc.Profit.Sign,
		ProfitValue: *doc.Profit.Value,
	}
	if doc.ContractID != nil {
		s.ContractID = *doc.ContractID
	}
	if doc.SellPrice != nil && doc.SellPrice.Value != nil {
		s.SellPrice = *doc.SellPrice.Value
	}
	if doc.EntrySpot != nil {
		s.EntrySpot = *doc.EntrySpot
	}
	if doc.ExitSpot != nil {
		s.ExitSpot = *doc.ExitSpot
	}
	if doc.Profit.Percentage != nil {
		s.ProfitPct = *doc.Profit.Percentage
	}
	s.PurchaseTime = epochSeconds(doc.PurchaseTime)
	s.ExpiryTime = epochSeconds(doc.ExpiryTime)
	s.SettledTime = epochSeconds(doc.SettledTime)

	signed := float64(s.ProfitSign) * s.ProfitValue
	won := s.Status == StatusWon
	s.Outcome = TradeOutcome{
		Won:          won,
		Stake:        s.BuyPrice,
		Profit:       s.ProfitValue,
		SignedProfit: signed,
	}

	return s, nil
}

// epochSeconds normalizes a unit-tagged timestamp to epoch seconds.
// Absent timestamps normalize to zero.
func epochSeconds(t *rawTime) int64 {
	if t == nil || t.Value == nil {
		return 0
	}
	switch t.Unit {
	case "ms", "millisecond", "milliseconds":
		return *t.Value / 1000
	default:
		return *t.Value
	}
}
