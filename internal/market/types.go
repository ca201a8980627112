package market

import "github.com/shopspring/decimal"

// okxTickerResponse is the OKX v5 market ticker envelope.
// code "0" means success; anything else carries msg.
type okxTickerResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []okxTicker `json:"data"`
}

type okxTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	AskPx  string `json:"askPx"`
	BidPx  string `json:"bidPx"`
	TS     string `json:"ts"`
}

// Ticker is the normalized top-of-book quote for one instrument:
// Ask is the price a buyer pays, Bid is what a seller receives.
type Ticker struct {
	InstID string
	Ask    decimal.Decimal
	Bid    decimal.Decimal
}

// okxWSSubscribe is the subscription request sent on the public websocket.
type okxWSSubscribe struct {
	Op   string     `json:"op"`
	Args []okxWSArg `json:"args"`
}

type okxWSArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// okxWSMessage is a pushed websocket payload for the tickers channel.
type okxWSMessage struct {
	Event string      `json:"event,omitempty"`
	Arg   okxWSArg    `json:"arg,omitempty"`
	Data  []okxTicker `json:"data,omitempty"`
}
