// Package io reads and writes period snapshots.
//
// # CSV Format
//
// Market cap files are plain CSV with a header row that is skipped. Columns
// are positional:
//
//	rank,company_name,market_cap_usd,market_cap_display,logo_url,primary_hex
//	1,Acme,"$3,120,000,000,000",$3.12T,https://example.com/acme.png,#3B82F6
//
// Values are cleaned of currency symbols and separators before parsing
// (see [ParseValue]); ranks are the leading integer of the cell (see
// [ParseRank]). Records come back sorted by value descending.
//
// # JSON Format
//
// [Document] is the JSON shape shared with the HTTP API:
//
//	{
//	  "year": 2024,
//	  "totalCompanies": 2,
//	  "data": [
//	    {"company_name": "Acme", "rank": 1, "market_cap_usd": 3.12e12, "market_cap_display": "$3.12T"}
//	  ]
//	}
//
// [ReadJSON] also accepts a bare array of records.
//
// # Datasets
//
// A [Dataset] is a directory of market_cap_YYYY.csv files. [Dataset.Previous]
// implements the previous-period rule: year Y compares against Y-1, and the
// first available year compares against nothing.
//
//	ds := io.NewDataset("data", 2015, 2025)
//	cur, err := ds.Load(ctx, 2024)
//	prev, err := ds.Previous(ctx, 2024)
package io
