package aggregate

import "math"

// ProductCounters are the counter values a product upsert settled on; the
// derived rates are recomputed from exactly these.
type ProductCounters struct {
	Views        int64 `db:"views"`
	CartAdds     int64 `db:"cart_adds"`
	WishlistAdds int64 `db:"wishlist_adds"`
	Purchases    int64 `db:"purchases"`
}

// ProductRates are the derived conversion percentages, rounded to two
// decimal places.
type ProductRates struct {
	ViewToCart     float64
	ViewToWishlist float64
	CartToPurchase float64
}

func computeRates(c ProductCounters) ProductRates {
	var r ProductRates
	if c.Views > 0 {
		r.ViewToCart = round2(float64(c.CartAdds) / float64(c.Views) * 100)
		r.ViewToWishlist = round2(float64(c.WishlistAdds) / float64(c.Views) * 100)
	}
	if c.CartAdds > 0 {
		r.CartToPurchase = round2(float64(c.Purchases) / float64(c.CartAdds) * 100)
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
