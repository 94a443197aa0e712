package polymarket

import "encoding/json"

// Market is one tradable side (YES/NO) of a prediction-market question.
// Records are built fresh on every discovery call and never cached.
type Market struct {
	TokenID     string  `json:"token_id"`
	ConditionID string  `json:"condition_id"`
	Question    string  `json:"question"`
	Outcome     string  `json:"outcome"` // YES or NO
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	EndDate     string  `json:"end_date"`
	EventTitle  string  `json:"event_title"`
}

// BookLevel is one price level of an orderbook side.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Orderbook holds the top levels of both sides of a token's book.
type Orderbook struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// OrderResult reports the outcome of an order submission. Simulated results
// carry no exchange response.
type OrderResult struct {
	Simulated bool            `json:"simulated"`
	Side      string          `json:"side"`
	Amount    float64         `json:"amount,omitempty"`
	Price     float64         `json:"price,omitempty"`
	Size      float64         `json:"size,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// Gamma encodes some list fields as JSON arrays nested inside JSON strings.
// stringList accepts either form and degrades to empty on malformed input.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = nil
		return nil
	}
	if raw == "" {
		*s = nil
		return nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		*s = nil
		return nil
	}
	*s = nested
	return nil
}

// flexFloat accepts a number, a numeric string, or null. Anything else
// counts as zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat(num)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*f = 0
		return nil
	}
	var nested float64
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(nested)
	return nil
}

type gammaMarket struct {
	Question      string     `json:"question"`
	ConditionID   string     `json:"conditionId"`
	EndDate       string     `json:"endDate"`
	OutcomePrices stringList `json:"outcomePrices"`
	ClobTokenIDs  stringList `json:"clobTokenIds"`
	Volume        flexFloat  `json:"volume"`
}

type gammaEvent struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Markets     []gammaMarket `json:"markets"`
}
