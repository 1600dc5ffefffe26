package provider

// Wire shapes of the Polygon.io REST endpoints used by PolygonClient. Optional numeric
// fields are pointers so a missing value is never read as zero.

type lastTradeResponse struct {
	Status  string `json:"status"`
	Results struct {
		Ticker    string  `json:"T"`
		Price     float64 `json:"p"`
		Size      float64 `json:"s"`
		Timestamp int64   `json:"t"`
	} `json:"results"`
}

type prevAggResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker    string  `json:"T"`
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
		Timestamp int64   `json:"t"`
	} `json:"results"`
}

type contractRef struct {
	Ticker           string  `json:"ticker"`
	UnderlyingTicker string  `json:"underlying_ticker"`
	ContractType     string  `json:"contract_type"`
	StrikePrice      float64 `json:"strike_price"`
	ExpirationDate   string  `json:"expiration_date"`
}

type contractsResponse struct {
	Status  string        `json:"status"`
	Results []contractRef `json:"results"`
	NextURL string        `json:"next_url"`
}

type optionSnapshot struct {
	Details struct {
		Ticker         string  `json:"ticker"`
		ContractType   string  `json:"contract_type"`
		StrikePrice    float64 `json:"strike_price"`
		ExpirationDate string  `json:"expiration_date"`
	} `json:"details"`
	LastQuote *struct {
		Bid float64 `json:"bid"`
		Ask float64 `json:"ask"`
	} `json:"last_quote"`
	LastTrade *struct {
		Price float64 `json:"price"`
	} `json:"last_trade"`
	Day *struct {
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"day"`
	OpenInterest      float64  `json:"open_interest"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
	Greeks            *struct {
		Delta *float64 `json:"delta"`
		Gamma *float64 `json:"gamma"`
		Theta *float64 `json:"theta"`
		Vega  *float64 `json:"vega"`
	} `json:"greeks"`
	UnderlyingAsset *struct {
		Price float64 `json:"price"`
	} `json:"underlying_asset"`
}

type snapshotResponse struct {
	Status  string           `json:"status"`
	Results []optionSnapshot `json:"results"`
	NextURL string           `json:"next_url"`
}
