package session

import (
	"time"

	"binary-core/internal/venue"
)

// Params carries everything a session needs from the front end. Durations
// arrive as strings ("30m", "15s") and are parsed during validation.
type Params struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`

	Market       string  `json:"market"`
	ContractType string  `json:"contract_type"`
	Currency     string  `json:"currency"`
	Stake        float64 `json:"stake"`
	TakeProfit   float64 `json:"take_profit"`
	StopLoss     float64 `json:"stop_loss"`

	TradeDuration   string `json:"trade_duration"`
	UpdateFrequency string `json:"update_frequency"`

	ContractDurationUnit  string `json:"contract_duration_unit"`
	ContractDurationValue int    `json:"contract_duration_value"`

	TradingMode string `json:"trading_mode"`

	// Parsed during Validate; zero until then.
	tradeDuration   time.Duration
	updateFrequency time.Duration
}

// Validate checks presence and positivity of every required parameter and
// parses the duration strings. The first failing field wins.
func (p *Params) Validate() error {
	if p.AccountID == "" {
		return &ValidationError{Field: "account_id", Reason: "required"}
	}
	if p.Market == "" {
		return &ValidationError{Field: "market", Reason: "required"}
	}
	if p.ContractType == "" {
		return &ValidationError{Field: "contract_type", Reason: "required"}
	}
	if p.Stake <= 0 {
		return &ValidationError{Field: "stake", Reason: "must be positive"}
	}
	if p.TakeProfit <= 0 {
		return &ValidationError{Field: "take_profit", Reason: "must be positive"}
	}
	if p.StopLoss <= 0 {
		return &ValidationError{Field: "stop_loss", Reason: "must be positive"}
	}
	if p.TradeDuration == "" {
		return &ValidationError{Field: "trade_duration", Reason: "required"}
	}
	d, err := time.ParseDuration(p.TradeDuration)
	if err != nil || d <= 0 {
		return &ValidationError{Field: "trade_duration", Reason: "must be a positive duration"}
	}
	p.tradeDuration = d

	if p.UpdateFrequency == "" {
		return &ValidationError{Field: "update_frequency", Reason: "required"}
	}
	f, err := time.ParseDuration(p.UpdateFrequency)
	if err != nil || f <= 0 {
		return &ValidationError{Field: "update_frequency", Reason: "must be a positive duration"}
	}
	p.updateFrequency = f

	if p.ContractDurationUnit == "" {
		return &ValidationError{Field: "contract_duration_unit", Reason: "required"}
	}
	if p.ContractDurationValue <= 0 {
		return &ValidationError{Field: "contract_duration_value", Reason: "must be positive"}
	}
	if p.TradingMode == "" {
		return &ValidationError{Field: "trading_mode", Reason: "required"}
	}
	return nil
}

// contract builds the purchase intent for one trade at the given stake.
func (p *Params) contract(stake float64) venue.ContractParams {
	return venue.ContractParams{
		Market:       p.Market,
		Kind:         venue.KindFromName(p.ContractType),
		Stake:        stake,
		DurationUnit: p.ContractDurationUnit,
		Duration:     p.ContractDurationValue,
		Currency:     p.Currency,
	}
}
