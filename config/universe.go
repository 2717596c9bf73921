package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"groww-scanner/internal/model"
)

// Universe is the scan watchlist seed: stocks, benchmark indices, and
// stock-to-index mappings. Loaded from a YAML file or built in.
type Universe struct {
	Stocks   []UniverseStock   `yaml:"stocks"`
	Indices  []UniverseIndex   `yaml:"indices"`
	Mappings []UniverseMapping `yaml:"mappings"`
}

type UniverseStock struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

type UniverseIndex struct {
	Symbol     string `yaml:"symbol"`
	Name       string `yaml:"name"`
	DataSymbol string `yaml:"data_symbol"`
}

type UniverseMapping struct {
	Stock string `yaml:"stock"`
	Index string `yaml:"index"`
}

// LoadUniverse reads a universe seed file. An empty path returns the
// built-in default.
func LoadUniverse(path string) (*Universe, error) {
	if path == "" {
		return DefaultUniverse(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("universe file: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("universe file %s: %w", path, err)
	}
	if len(u.Stocks) == 0 && len(u.Indices) == 0 {
		return nil, fmt.Errorf("universe file %s: no stocks or indices", path)
	}
	return &u, nil
}

// EnsureBenchmarks appends any benchmark index missing from the seed.
// The scanner needs its configured benchmarks in the watchlist even when
// a custom universe file omits them.
func (u *Universe) EnsureBenchmarks(symbols ...string) {
	present := make(map[string]bool, len(u.Indices))
	for _, ix := range u.Indices {
		present[ix.Symbol] = true
	}
	for _, sym := range symbols {
		if sym == "" || present[sym] {
			continue
		}
		present[sym] = true
		u.Indices = append(u.Indices, UniverseIndex{Symbol: sym})
	}
}

// Watchlist converts the universe into store seed rows. Indices without
// a data symbol default to their own symbol.
func (u *Universe) Watchlist() ([]model.WatchStock, []model.WatchIndex, []model.TickerIndex) {
	stocks := make([]model.WatchStock, 0, len(u.Stocks))
	for _, s := range u.Stocks {
		stocks = append(stocks, model.WatchStock{Symbol: s.Symbol, Name: s.Name, Active: true})
	}
	indices := make([]model.WatchIndex, 0, len(u.Indices))
	for _, ix := range u.Indices {
		ds := ix.DataSymbol
		if ds == "" {
			ds = ix.Symbol
		}
		indices = append(indices, model.WatchIndex{Symbol: ix.Symbol, Name: ix.Name, DataSymbol: ds, Active: true})
	}
	mappings := make([]model.TickerIndex, 0, len(u.Mappings))
	for _, m := range u.Mappings {
		mappings = append(mappings, model.TickerIndex{StockSymbol: m.Stock, IndexSymbol: m.Index})
	}
	return stocks, indices, mappings
}

// niftyUniverse is the NIFTY 50 constituent list used when no universe
// file is configured.
var niftyUniverse = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
	"BAJAJ-AUTO", "BAJAJFINSV", "BAJFINANCE", "BHARTIARTL", "BPCL",
	"BRITANNIA", "CIPLA", "COALINDIA", "DIVISLAB", "DRREDDY",
	"EICHERMOT", "GRASIM", "HCLTECH", "HDFCAMC", "HDFCBANK",
	"HDFCLIFE", "HEROMOTOCO", "HINDALCO", "HINDUNILVR", "ICICIBANK",
	"INDUSINDBK", "ITC", "JSWSTEEL", "KOTAKBANK", "LT",
	"M&M", "MARUTI", "NESTLEIND", "NTPC", "ONGC",
	"POWERGRID", "RELIANCE", "SBILIFE", "SBIN", "SHREECEM",
	"SUNPHARMA", "TATACONSUM", "TATAMOTORS", "TATASTEEL", "TECHM",
	"TITAN", "ULTRACEMCO", "UPL", "WIPRO",
}

// bankUniverse holds the banking names that score against BANKNIFTY
// instead of the broad benchmark.
var bankUniverse = []string{
	"AXISBANK", "BANKBARODA", "FEDERALBNK", "HDFCBANK", "ICICIBANK",
	"IDFCFIRSTB", "INDUSINDBK", "KOTAKBANK", "PNB", "SBIN",
}

// sectorIndices are tracked for regime states and manual mappings.
var sectorIndices = []string{
	"NIFTYAUTO", "NIFTYFIN", "NIFTYFMCG", "NIFHEIN", "NIFTYIT",
	"NIFTYMED", "NIFTYMET", "NIPHARM", "NIFTYREAL", "NIFCODU",
	"NIFOILGAS",
}

// DefaultUniverse returns the built-in seed: the NIFTY 50 constituents
// plus the banking names, the two core benchmarks, and the sector
// indices. Bank stocks map to BANKNIFTY; everything else falls back to
// the default benchmark at scan time.
func DefaultUniverse() *Universe {
	seen := make(map[string]bool, len(niftyUniverse)+len(bankUniverse))
	var stocks []UniverseStock
	for _, sym := range append(append([]string{}, niftyUniverse...), bankUniverse...) {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		stocks = append(stocks, UniverseStock{Symbol: sym})
	}

	indices := []UniverseIndex{
		{Symbol: "NIFTY", Name: "Nifty 50"},
		{Symbol: "BANKNIFTY", Name: "Nifty Bank"},
	}
	for _, sym := range sectorIndices {
		indices = append(indices, UniverseIndex{Symbol: sym})
	}

	mappings := make([]UniverseMapping, 0, len(bankUniverse))
	for _, sym := range bankUniverse {
		mappings = append(mappings, UniverseMapping{Stock: sym, Index: "BANKNIFTY"})
	}

	return &Universe{Stocks: stocks, Indices: indices, Mappings: mappings}
}
