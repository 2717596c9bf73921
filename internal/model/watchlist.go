package model

// WatchStock is an equity symbol the scanner tracks.
type WatchStock struct {
	ID     int64  `json:"id" db:"id"`
	Symbol string `json:"symbol" db:"symbol"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}

// WatchIndex is a benchmark or sector index the scanner tracks.
// DataSymbol is the upstream provider's identifier for the index; it
// defaults to Symbol when the provider uses the same name.
type WatchIndex struct {
	ID         int64  `json:"id" db:"id"`
	Symbol     string `json:"symbol" db:"symbol"`
	Name       string `json:"name" db:"name"`
	DataSymbol string `json:"data_symbol" db:"data_symbol"`
	Active     bool   `json:"active" db:"active"`
}

// TickerIndex maps a stock symbol to one of its associated index symbols.
// A stock may carry several mappings; the default market benchmark is
// implicit and never stored.
type TickerIndex struct {
	StockSymbol string `json:"stock_symbol" db:"stock_symbol"`
	IndexSymbol string `json:"index_symbol" db:"index_symbol"`
}
