package aggregate

import (
	"time"

	"github.com/google/uuid"

	"github.com/ecomstream/analytics-pipeline/internal/event"
)

// UserAnalytics is the per-user projection. Counters only grow, except
// TotalWishlist: removals are not clamped, so it can go negative when a
// remove arrives without its matching add.
type UserAnalytics struct {
	UserID         string    `db:"user_id" json:"user_id"`
	LastVisited    time.Time `db:"last_visited" json:"last_visited"`
	TotalViews     int64     `db:"total_views" json:"total_views"`
	TotalCartAdds  int64     `db:"total_cart_adds" json:"total_cart_adds"`
	TotalWishlist  int64     `db:"total_wishlist" json:"total_wishlist"`
	TotalPurchases int64     `db:"total_purchases" json:"total_purchases"`
	Country        string    `db:"country" json:"country,omitempty"`
	City           string    `db:"city" json:"city,omitempty"`
	Device         string    `db:"device" json:"device,omitempty"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserAction is one entry of the per-user action log, externalized to its
// own table instead of an in-record array so the projection row stays
// bounded.
type UserAction struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Action    string    `db:"action" json:"action"`
	ProductID string    `db:"product_id" json:"product_id,omitempty"`
	ShopID    string    `db:"shop_id" json:"shop_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProductAnalytics is the per-product projection. UniqueViews tracks
// identically to Views: real unique counting never landed upstream and the
// literal behavior is kept.
type ProductAnalytics struct {
	ProductID          string     `db:"product_id" json:"product_id"`
	ShopID             string     `db:"shop_id" json:"shop_id,omitempty"`
	Views              int64      `db:"views" json:"views"`
	UniqueViews        int64      `db:"unique_views" json:"unique_views"`
	CartAdds           int64      `db:"cart_adds" json:"cart_adds"`
	WishlistAdds       int64      `db:"wishlist_adds" json:"wishlist_adds"`
	WishlistRemoves    int64      `db:"wishlist_removes" json:"wishlist_removes"`
	Purchases          int64      `db:"purchases" json:"purchases"`
	LastViewAt         *time.Time `db:"last_view_at" json:"last_view_at,omitempty"`
	LastCartAddAt      *time.Time `db:"last_cart_add_at" json:"last_cart_add_at,omitempty"`
	LastPurchaseAt     *time.Time `db:"last_purchase_at" json:"last_purchase_at,omitempty"`
	ViewToCartRate     float64    `db:"view_to_cart_rate" json:"view_to_cart_rate"`
	ViewToWishlistRate float64    `db:"view_to_wishlist_rate" json:"view_to_wishlist_rate"`
	CartToPurchaseRate float64    `db:"cart_to_purchase_rate" json:"cart_to_purchase_rate"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// ShopAnalytics is the per-shop projection. UniqueVisitors is seeded to 1
// on creation and never incremented afterwards (literal upstream
// behavior).
type ShopAnalytics struct {
	ShopID            string     `db:"shop_id" json:"shop_id"`
	Visits            int64      `db:"visits" json:"visits"`
	UniqueVisitors    int64      `db:"unique_visitors" json:"unique_visitors"`
	TotalProductViews int64      `db:"total_product_views" json:"total_product_views"`
	TotalCartAdds     int64      `db:"total_cart_adds" json:"total_cart_adds"`
	TotalWishlistAdds int64      `db:"total_wishlist_adds" json:"total_wishlist_adds"`
	TotalPurchases    int64      `db:"total_purchases" json:"total_purchases"`
	LastVisitAt       *time.Time `db:"last_visit_at" json:"last_visit_at,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// UserDelta, ProductDelta, and ShopDelta carry the increments one event
// contributes to each projection. Touch* flags mark which last-seen
// timestamps the event sets.
type UserDelta struct {
	Views     int64
	CartAdds  int64
	Wishlist  int64
	Purchases int64
}

type ProductDelta struct {
	Views           int64
	UniqueViews     int64
	CartAdds        int64
	WishlistAdds    int64
	WishlistRemoves int64
	Purchases       int64
	TouchView       bool
	TouchCartAdd    bool
	TouchPurchase   bool
}

type ShopDelta struct {
	Visits       int64
	ProductViews int64
	CartAdds     int64
	WishlistAdds int64
	Purchases    int64
	TouchVisit   bool
}

// deltasFor maps one action onto the three projections. The switch is
// exhaustive over event.Action; remove_from_cart deliberately carries no
// counter effect and only lands in the user action log.
func deltasFor(a event.Action) (UserDelta, ProductDelta, ShopDelta) {
	var u UserDelta
	var p ProductDelta
	var s ShopDelta

	switch a {
	case event.ActionProductView:
		u.Views = 1
		p.Views = 1
		p.UniqueViews = 1
		p.TouchView = true
		s.ProductViews = 1
	case event.ActionAddToCart:
		u.CartAdds = 1
		p.CartAdds = 1
		p.TouchCartAdd = true
		s.CartAdds = 1
	case event.ActionRemoveFromCart:
		// log-only
	case event.ActionAddToWishlist:
		u.Wishlist = 1
		p.WishlistAdds = 1
		s.WishlistAdds = 1
	case event.ActionRemoveFromWishlist:
		u.Wishlist = -1
		p.WishlistRemoves = 1
	case event.ActionShopVisit:
		s.Visits = 1
		s.TouchVisit = true
	case event.ActionPurchase:
		u.Purchases = 1
		p.Purchases = 1
		p.TouchPurchase = true
		s.Purchases = 1
	}

	return u, p, s
}
