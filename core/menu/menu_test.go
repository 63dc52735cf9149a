package menu

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidPrice(t *testing.T) {
	tests := []struct {
		price string
		want  bool
	}{
		{"0", true},
		{"6", true},
		{"12.50", true},
		{"10000", true},
		{"10000.01", false},
		{"-1", false},
		{"1.005", false},
	}

	for _, tt := range tests {
		if got := validPrice(decimal.RequireFromString(tt.price)); got != tt.want {
			t.Errorf("validPrice(%s) = %v, want %v", tt.price, got, tt.want)
		}
	}
}

func TestAvailable(t *testing.T) {
	items := []Item{
		{ID: "1", Available: true},
		{ID: "2"},
		{ID: "3", Available: true},
	}

	got := available(items)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("unexpected items %+v", got)
	}
	if len(items) != 3 {
		t.Fatal("input was modified")
	}
}
