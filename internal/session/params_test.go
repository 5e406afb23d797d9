package session

import (
	"errors"
	"testing"
)

func validParams() Params {
	return testParams(100, 100)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Params)
		wantField string
	}{
		{name: "valid", mutate: func(p *Params) {}},
		{name: "missing account", mutate: func(p *Params) { p.AccountID = "" }, wantField: "account_id"},
		{name: "missing market", mutate: func(p *Params) { p.Market = "" }, wantField: "market"},
		{name: "missing contract type", mutate: func(p *Params) { p.ContractType = "" }, wantField: "contract_type"},
		{name: "zero stake", mutate: func(p *Params) { p.Stake = 0 }, wantField: "stake"},
		{name: "negative stake", mutate: func(p *Params) { p.Stake = -5 }, wantField: "stake"},
		{name: "zero take profit", mutate: func(p *Params) { p.TakeProfit = 0 }, wantField: "take_profit"},
		{name: "zero stop loss", mutate: func(p *Params) { p.StopLoss = 0 }, wantField: "stop_loss"},
		{name: "missing trade duration", mutate: func(p *Params) { p.TradeDuration = "" }, wantField: "trade_duration"},
		{name: "garbage trade duration", mutate: func(p *Params) { p.TradeDuration = "soon" }, wantField: "trade_duration"},
		{name: "negative trade duration", mutate: func(p *Params) { p.TradeDuration = "-5m" }, wantField: "trade_duration"},
		{name: "garbage update frequency", mutate: func(p *Params) { p.UpdateFrequency = "often" }, wantField: "update_frequency"},
		{name: "missing duration unit", mutate: func(p *Params) { p.ContractDurationUnit = "" }, wantField: "contract_duration_unit"},
		{name: "zero duration value", mutate: func(p *Params) { p.ContractDurationValue = 0 }, wantField: "contract_duration_value"},
		{name: "missing trading mode", mutate: func(p *Params) { p.TradingMode = "" }, wantField: "trading_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("valid params rejected: %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Fatalf("failed field %q, expected %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateParsesDurations(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if p.tradeDuration.Hours() != 1 {
		t.Fatalf("tradeDuration=%v, expected 1h", p.tradeDuration)
	}
	if p.updateFrequency.Minutes() != 5 {
		t.Fatalf("updateFrequency=%v, expected 5m", p.updateFrequency)
	}
}

func TestContractBuildsPurchaseIntent(t *testing.T) {
	p := validParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	c := p.contract(15)
	if c.Market != "R_100" || c.Stake != 15 || c.Duration != 5 || c.DurationUnit != "t" {
		t.Fatalf("contract params wrong: %+v", c)
	}
}
