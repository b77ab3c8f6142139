package aggregate

import "testing"

func TestComputeRates(t *testing.T) {
	tests := []struct {
		name     string
		counters ProductCounters
		want     ProductRates
	}{
		{
			name:     "zero views and carts",
			counters: ProductCounters{},
			want:     ProductRates{},
		},
		{
			name:     "views without carts",
			counters: ProductCounters{Views: 10},
			want:     ProductRates{},
		},
		{
			name:     "fifty views ten carts",
			counters: ProductCounters{Views: 50, CartAdds: 10},
			want:     ProductRates{ViewToCart: 20.00, CartToPurchase: 0},
		},
		{
			name:     "repeating decimal rounds to two places",
			counters: ProductCounters{Views: 3, CartAdds: 1, WishlistAdds: 2},
			want:     ProductRates{ViewToCart: 33.33, ViewToWishlist: 66.67},
		},
		{
			name:     "purchases over carts",
			counters: ProductCounters{Views: 8, CartAdds: 4, Purchases: 3},
			want:     ProductRates{ViewToCart: 50, CartToPurchase: 75},
		},
		{
			name:     "rate above one hundred is possible",
			counters: ProductCounters{Views: 2, CartAdds: 5, Purchases: 6},
			want:     ProductRates{ViewToCart: 250, CartToPurchase: 120},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeRates(tt.counters)
			if got != tt.want {
				t.Fatalf("computeRates(%+v) = %+v, want %+v", tt.counters, got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{33.333333, 33.33},
		{66.666666, 66.67},
		{12.344, 12.34},
		{12.346, 12.35},
		{100, 100},
	}

	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Fatalf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
