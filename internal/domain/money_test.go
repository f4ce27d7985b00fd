package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"590", 59000, false},
		{"590.5", 59050, false},
		{"590.05", 59005, false},
		{"0.01", 1, false},
		{".5", 50, false},
		{"-12.30", -1230, false},
		{"1.005", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{".", 0, true},
		{"5.+5", 0, true},
		{"5.-5", 0, true},
		{"5.+", 0, true},
		{"+-5", 0, true},
		{"5. 5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMoney(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMoney(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMoney(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		Amount Money `json:"amount"`
	}

	if err := json.Unmarshal([]byte(`{"amount": 310.00}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Amount != 31000 {
		t.Errorf("expected 31000, got %d", v.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount": "280.5"}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Amount != 28050 {
		t.Errorf("expected 28050, got %d", v.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount": 1e3}`), &v); err == nil {
		t.Error("expected exponent notation to be rejected")
	}

	out, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{Total: 59000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"total":590.00}` {
		t.Errorf("unexpected encoding %s", out)
	}
}

func TestMoneyMulRatio_RoundsHalfUp(t *testing.T) {
	// 18% of 500.00
	if got, ok := NewMoney(500, 0).MulRatio(18, 100); !ok || got != NewMoney(90, 0) {
		t.Errorf("expected 90.00, got %s", got)
	}
	// 12.5% of 0.04 = 0.005 -> 0.01
	if got, ok := Money(4).MulRatio(125, 1000); !ok || got != 1 {
		t.Errorf("expected 0.01, got %s", got)
	}
	// 12.5% of 0.03 = 0.00375 -> 0.00
	if got, ok := Money(3).MulRatio(125, 1000); !ok || got != 0 {
		t.Errorf("expected 0.00, got %s", got)
	}
	// 12.345% of 1000.00
	if got, ok := NewMoney(1000, 0).MulRatio(12345, 100000); !ok || got != NewMoney(123, 45) {
		t.Errorf("expected 123.45, got %s", got)
	}
	if _, ok := Money(math.MaxInt64).MulRatio(2, 100); ok {
		t.Error("expected overflow to be reported")
	}
}
