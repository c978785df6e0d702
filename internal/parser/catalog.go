package parser

import (
	"encoding/json"
)

// CatalogEntry is one result of the market search endpoint (norender=1).
type CatalogEntry struct {
	Name             string           `json:"name"`
	HashName         string           `json:"hash_name"`
	SellListings     int              `json:"sell_listings"`
	SellPrice        int              `json:"sell_price"`
	SellPriceText    string           `json:"sell_price_text"`
	AssetDescription AssetDescription `json:"asset_description"`
}

type AssetDescription struct {
	AppID          int    `json:"appid"`
	ClassID        string `json:"classid"`
	IconURL        string `json:"icon_url"`
	MarketHashName string `json:"market_hash_name"`
	Type           string `json:"type"`
}

// Validate reports the first field an Item needs that the entry lacks.
func (e CatalogEntry) Validate() error {
	switch {
	case e.HashName == "":
		return &MalformedResponseError{Payload: "catalog entry", Reason: "missing hash_name"}
	case e.Name == "":
		return &MalformedResponseError{Payload: "catalog entry", Reason: "missing name"}
	case e.AssetDescription.IconURL == "":
		return &MalformedResponseError{Payload: "catalog entry", Reason: "missing asset_description.icon_url"}
	}
	return nil
}

type catalogResponse struct {
	Success    *bool            `json:"success"`
	Start      int              `json:"start"`
	PageSize   int              `json:"pagesize"`
	TotalCount int              `json:"total_count"`
	Results    *json.RawMessage `json:"results"`
}

// ParseCatalogPage checks the page envelope and returns its results
// undecoded, so that one bad entry cannot fail the whole page.
// isLastPage is true when the result array is empty.
func ParseCatalogPage(raw []byte) (entries []json.RawMessage, isLastPage bool, err error) {
	var resp catalogResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, &MalformedResponseError{Payload: "catalog", Reason: "invalid json", Err: err}
	}
	if resp.Success == nil {
		return nil, false, &MalformedResponseError{Payload: "catalog", Reason: "missing success field"}
	}
	if !*resp.Success {
		return nil, false, &MalformedResponseError{Payload: "catalog", Reason: "success field was false"}
	}
	if resp.Results == nil || string(*resp.Results) == "null" {
		return nil, false, &MalformedResponseError{Payload: "catalog", Reason: "missing results array"}
	}
	if err := json.Unmarshal(*resp.Results, &entries); err != nil {
		return nil, false, &MalformedResponseError{Payload: "catalog", Reason: "results is not an array", Err: err}
	}
	return entries, len(entries) == 0, nil
}

// DecodeCatalogEntry decodes and validates one search result. On a type
// error the fields that did decode are still returned for logging.
func DecodeCatalogEntry(raw json.RawMessage) (CatalogEntry, error) {
	var entry CatalogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, &MalformedResponseError{Payload: "catalog entry", Reason: "invalid entry", Err: err}
	}
	return entry, entry.Validate()
}
