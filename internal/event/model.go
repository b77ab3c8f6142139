package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of user interactions the pipeline aggregates.
type Action string

const (
	ActionProductView        Action = "product_view"
	ActionAddToCart          Action = "add_to_cart"
	ActionRemoveFromCart     Action = "remove_from_cart"
	ActionAddToWishlist      Action = "add_to_wishlist"
	ActionRemoveFromWishlist Action = "remove_from_wishlist"
	ActionShopVisit          Action = "shop_visit"
	ActionPurchase           Action = "purchase"
)

func (a Action) Valid() bool {
	switch a {
	case ActionProductView, ActionAddToCart, ActionRemoveFromCart,
		ActionAddToWishlist, ActionRemoveFromWishlist,
		ActionShopVisit, ActionPurchase:
		return true
	}
	return false
}

// AnalyticsEvent is a validated interaction event. It is transient: the
// pipeline folds it into the projections and never stores it as its own
// record.
type AnalyticsEvent struct {
	ID        uuid.UUID
	UserID    string
	ProductID string
	ShopID    string
	Action    Action
	Timestamp time.Time
	Country   string
	City      string
	Device    string
}

// payload is the wire shape of an inbound message. Producers send
// timestamp either as an RFC3339 string or as an epoch number, so it is
// decoded separately.
type payload struct {
	UserID    string          `json:"userId"`
	ProductID string          `json:"productId"`
	ShopID    string          `json:"shopId"`
	Action    string          `json:"action"`
	Timestamp json.RawMessage `json:"timestamp"`
	Country   string          `json:"country"`
	City      string          `json:"city"`
	Device    string          `json:"device"`
}

// Decode parses and validates a raw inbound message. An absent or
// unparseable timestamp coerces to the current time.
func Decode(raw []byte) (*AnalyticsEvent, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	ev := &AnalyticsEvent{
		ID:        uuid.New(),
		UserID:    p.UserID,
		ProductID: p.ProductID,
		ShopID:    p.ShopID,
		Action:    Action(p.Action),
		Timestamp: parseTimestamp(p.Timestamp),
		Country:   p.Country,
		City:      p.City,
		Device:    p.Device,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func (e *AnalyticsEvent) Validate() error {
	if e.UserID == "" {
		return ErrMissingUserID
	}
	if e.Action == "" {
		return ErrMissingAction
	}
	if !e.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(n)
		}
		return time.Time{}
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fromEpoch(n)
	}
	return time.Time{}
}

// Values above 1e12 are read as epoch milliseconds, everything else as
// epoch seconds.
func fromEpoch(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
