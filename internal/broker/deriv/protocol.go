package deriv

import (
	"fmt"
	"strconv"
	"time"

	"binary_bot/internal/models"
)

const (
	msgAuthorize = "authorize"
	msgBalance   = "balance"
	msgTick      = "tick"
	msgBuy       = "buy"
	msgContract  = "proposal_open_contract"
	msgHistory   = "history"

	contractCall = "CALL"
	contractPut  = "PUT"
)

// envelope is every frame the Deriv API sends; only the body matching MsgType is set.
type envelope struct {
	MsgType  string        `json:"msg_type"`
	ReqID    int64         `json:"req_id,omitempty"`
	Error    *apiError     `json:"error,omitempty"`
	Auth     *authorizeMsg `json:"authorize,omitempty"`
	Balance  *balanceMsg   `json:"balance,omitempty"`
	Tick     *tickMsg      `json:"tick,omitempty"`
	Buy      *buyMsg       `json:"buy,omitempty"`
	Contract *contractMsg  `json:"proposal_open_contract,omitempty"`
	History  *historyMsg   `json:"history,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return fmt.Sprintf("deriv %s: %s", e.Code, e.Message) }

type authorizeMsg struct {
	LoginID   string  `json:"loginid"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	IsVirtual int     `json:"is_virtual"`
}

type balanceMsg struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type tickMsg struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
	Epoch  int64   `json:"epoch"`
}

type buyMsg struct {
	ContractID    int64   `json:"contract_id"`
	BuyPrice      float64 `json:"buy_price"`
	Payout        float64 `json:"payout"`
	StartTime     int64   `json:"start_time"`
	TransactionID int64   `json:"transaction_id"`
}

type contractMsg struct {
	ContractID int64   `json:"contract_id"`
	IsSold     int     `json:"is_sold"`
	Status     string  `json:"status"`
	Profit     float64 `json:"profit"`
	EntrySpot  float64 `json:"entry_spot"`
	ExitTick   float64 `json:"exit_tick"`
}

// historyMsg is the ticks_history body: parallel arrays, oldest first.
type historyMsg struct {
	Prices []float64 `json:"prices"`
	Times  []int64   `json:"times"`
}

func (h historyMsg) samples() []models.PriceSample {
	n := len(h.Prices)
	if len(h.Times) < n {
		n = len(h.Times)
	}
	out := make([]models.PriceSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.PriceSample{Value: h.Prices[i], Timestamp: time.Unix(h.Times[i], 0).UTC()})
	}
	return out
}

func contractType(d models.Direction) string {
	if d == models.DirectionDown {
		return contractPut
	}
	return contractCall
}

// payoutRate converts the quoted total payout into the profit share of the stake.
func (b buyMsg) payoutRate() float64 {
	if b.BuyPrice <= 0 || b.Payout <= b.BuyPrice {
		return 0
	}
	return (b.Payout - b.BuyPrice) / b.BuyPrice
}

func (c contractMsg) outcome() (models.Outcome, bool) {
	if c.IsSold == 0 {
		return models.Outcome{}, false
	}
	res := models.ResultLoss
	if c.Status == "won" {
		res = models.ResultWin
	}
	return models.Outcome{Result: res, ExitPrice: c.ExitTick}, true
}

func parseContractID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("contract id %q: %w", id, err)
	}
	return n, nil
}
