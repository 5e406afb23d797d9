package venue

import "encoding/json"

// Wire envelopes for the venue's JSON websocket protocol. Requests carry a
// correlation id; pushed stream messages carry a subscription id instead.

type request struct {
	ID     int64           `json:"id"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

type response struct {
	ID           int64           `json:"id,omitempty"`
	Action       string          `json:"action,omitempty"`
	Subscription string          `json:"subscription,omitempty"`
	Error        *errorBody      `json:"error,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	actionAuthorize   = "authorize"
	actionPing        = "ping"
	actionBuy         = "buy"
	actionContract    = "contract_status"
	actionUnsubscribe = "unsubscribe"
)

// ContractKind is the closed set of contract types the core can purchase.
// Selection from a configured name is total: unknown names land on
// KindFallback, which purchases the venue's plain rise contract.
type ContractKind int

const (
	KindFallback ContractKind = iota
	KindRise
	KindFall
	KindDigitEven
	KindDigitOdd
)

// KindFromName maps a configured contract-type name onto the closed set.
func KindFromName(name string) ContractKind {
	switch name {
	case "CALL", "RISE":
		return KindRise
	case "PUT", "FALL":
		return KindFall
	case "DIGITEVEN":
		return KindDigitEven
	case "DIGITODD":
		return KindDigitOdd
	default:
		return KindFallback
	}
}

// Wire returns the venue-side contract identifier.
func (k ContractKind) Wire() string {
	switch k {
	case KindFall:
		return "PUT"
	case KindDigitEven:
		return "DIGITEVEN"
	case KindDigitOdd:
		return "DIGITODD"
	case KindRise:
		return "CALL"
	default:
		return "CALL"
	}
}

// ContractParams describes one purchase intent.
type ContractParams struct {
	Market       string       `json:"market"`
	Kind         ContractKind `json:"-"`
	ContractType string       `json:"contract_type"`
	Stake        float64      `json:"stake"`
	DurationUnit string       `json:"duration_unit"`
	Duration     int          `json:"duration"`
	Currency     string       `json:"currency,omitempty"`
}

// buyResult is the venue's acknowledgement of a purchase.
type buyResult struct {
	ContractID   int64  `json:"contract_id"`
	Subscription string `json:"subscription"`
}

// contractUpdate is the minimal view of a pushed lifecycle message needed to
// detect settlement; the full document is handed to the settlement parser.
type contractUpdate struct {
	Status    string `json:"status"`
	IsSettled bool   `json:"is_settled"`
}
