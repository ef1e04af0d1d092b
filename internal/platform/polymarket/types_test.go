package polymarket

import (
	"encoding/json"
	"testing"
)

func TestFlexBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`"true"`, true},
		{`"TRUE"`, true},
		{`"false"`, false},
		{`"1"`, true},
		{`""`, false},
	}
	for _, tt := range tests {
		var f flexBool
		if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
			t.Errorf("unmarshal %s: %v", tt.raw, err)
			continue
		}
		if bool(f) != tt.want {
			t.Errorf("flexBool(%s) = %v, want %v", tt.raw, bool(f), tt.want)
		}
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`12500.5`, 12500.5},
		{`"12500.5"`, 12500.5},
		{`""`, 0},
		{`0`, 0},
	}
	for _, tt := range tests {
		var f flexFloat
		if err := json.Unmarshal([]byte(tt.raw), &f); err != nil {
			t.Errorf("unmarshal %s: %v", tt.raw, err)
			continue
		}
		if float64(f) != tt.want {
			t.Errorf("flexFloat(%s) = %v, want %v", tt.raw, float64(f), tt.want)
		}
	}
}

func TestAPIMarketTokenIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantYes string
		wantNo  string
		wantOK  bool
	}{
		{"valid pair", `["111","222"]`, "111", "222", true},
		{"not json", `garbage`, "", "", false},
		{"wrong arity", `["111"]`, "", "", false},
		{"empty id", `["111",""]`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := APIMarket{ClobTokenIDs: tt.raw}
			yes, no, ok := m.TokenIDs()
			if ok != tt.wantOK || yes != tt.wantYes || no != tt.wantNo {
				t.Errorf("TokenIDs() = %q,%q,%v", yes, no, ok)
			}
		})
	}
}

func TestAPIBookBestLevels(t *testing.T) {
	book := APIBook{
		Bids: []APIPriceLevel{{Price: "0.10", Size: "5"}, {Price: "0.48", Size: "100"}},
		Asks: []APIPriceLevel{{Price: "0.90", Size: "5"}, {Price: "0.52", Size: "80"}},
	}
	bid, ask := book.BestLevels()
	if bid == nil || *bid != 0.48 {
		t.Errorf("bid = %v, want 0.48", bid)
	}
	if ask == nil || *ask != 0.52 {
		t.Errorf("ask = %v, want 0.52", ask)
	}

	empty := APIBook{}
	bid, ask = empty.BestLevels()
	if bid != nil || ask != nil {
		t.Error("empty book should have nil best levels")
	}

	malformed := APIBook{Bids: []APIPriceLevel{{Price: "x", Size: "1"}}}
	if bid, _ := malformed.BestLevels(); bid != nil {
		t.Error("unparseable price should yield nil")
	}
}
