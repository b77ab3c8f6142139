package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/event"
	"github.com/ecomstream/analytics-pipeline/pkg/postgres"
)

// Repository is the projection store. Each Apply* call is a single atomic
// upsert-with-increment for one key; no cross-key transaction is assumed.
type Repository interface {
	ApplyUser(ctx context.Context, ev *event.AnalyticsEvent, d UserDelta) error
	ApplyProduct(ctx context.Context, ev *event.AnalyticsEvent, d ProductDelta) (ProductCounters, error)
	ApplyShop(ctx context.Context, ev *event.AnalyticsEvent, d ShopDelta) error
	UpdateProductRates(ctx context.Context, productID string, r ProductRates) error

	GetUser(ctx context.Context, userID string) (*UserAnalytics, error)
	GetUserActions(ctx context.Context, userID string, limit int) ([]*UserAction, error)
	GetProduct(ctx context.Context, productID string) (*ProductAnalytics, error)
	GetShop(ctx context.Context, shopID string) (*ShopAnalytics, error)
	GetTopProducts(ctx context.Context, limit int) ([]*ProductAnalytics, error)
}

type repository struct {
	db     *postgres.DB
	logger *zap.Logger
}

func NewRepository(db *postgres.DB, logger *zap.Logger) Repository {
	return &repository{
		db:     db,
		logger: logger,
	}
}

const upsertUserQuery = `
	INSERT INTO user_analytics (
		user_id, last_visited, total_views, total_cart_adds, total_wishlist,
		total_purchases, country, city, device, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $2)
	ON CONFLICT (user_id) DO UPDATE SET
		last_visited    = EXCLUDED.last_visited,
		total_views     = user_analytics.total_views + EXCLUDED.total_views,
		total_cart_adds = user_analytics.total_cart_adds + EXCLUDED.total_cart_adds,
		total_wishlist  = user_analytics.total_wishlist + EXCLUDED.total_wishlist,
		total_purchases = user_analytics.total_purchases + EXCLUDED.total_purchases,
		country = COALESCE(NULLIF(EXCLUDED.country, ''), user_analytics.country),
		city    = COALESCE(NULLIF(EXCLUDED.city, ''), user_analytics.city),
		device  = COALESCE(NULLIF(EXCLUDED.device, ''), user_analytics.device),
		updated_at = EXCLUDED.updated_at
`

const insertUserActionQuery = `
	INSERT INTO user_actions (id, user_id, action, product_id, shop_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// ApplyUser upserts the user counters and appends the event to the user's
// action log. The two statements share a transaction so the log never
// references an update that did not land.
func (r *repository) ApplyUser(ctx context.Context, ev *event.AnalyticsEvent, d UserDelta) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertUserQuery,
		ev.UserID, ev.Timestamp,
		d.Views, d.CartAdds, d.Wishlist, d.Purchases,
		ev.Country, ev.City, ev.Device,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user analytics: %w", err)
	}

	_, err = tx.ExecContext(ctx, insertUserActionQuery,
		ev.ID, ev.UserID, string(ev.Action), ev.ProductID, ev.ShopID, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append user action: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}

	return nil
}

// unique_views mirrors views and unique_visitors stays at its seed value:
// literal upstream behavior until real unique counting lands.
const upsertProductQuery = `
	INSERT INTO product_analytics (
		product_id, shop_id, views, unique_views, cart_adds, wishlist_adds,
		wishlist_removes, purchases, last_view_at, last_cart_add_at,
		last_purchase_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (product_id) DO UPDATE SET
		shop_id          = COALESCE(NULLIF(EXCLUDED.shop_id, ''), product_analytics.shop_id),
		views            = product_analytics.views + EXCLUDED.views,
		unique_views     = product_analytics.unique_views + EXCLUDED.unique_views,
		cart_adds        = product_analytics.cart_adds + EXCLUDED.cart_adds,
		wishlist_adds    = product_analytics.wishlist_adds + EXCLUDED.wishlist_adds,
		wishlist_removes = product_analytics.wishlist_removes + EXCLUDED.wishlist_removes,
		purchases        = product_analytics.purchases + EXCLUDED.purchases,
		last_view_at     = COALESCE(EXCLUDED.last_view_at, product_analytics.last_view_at),
		last_cart_add_at = COALESCE(EXCLUDED.last_cart_add_at, product_analytics.last_cart_add_at),
		last_purchase_at = COALESCE(EXCLUDED.last_purchase_at, product_analytics.last_purchase_at),
		updated_at       = EXCLUDED.updated_at
	RETURNING views, cart_adds, wishlist_adds, purchases
`

// ApplyProduct upserts the product counters and returns the values the row
// settled on so the caller can recompute the derived rates.
func (r *repository) ApplyProduct(ctx context.Context, ev *event.AnalyticsEvent, d ProductDelta) (ProductCounters, error) {
	var viewAt, cartAt, purchaseAt *time.Time
	if d.TouchView {
		viewAt = &ev.Timestamp
	}
	if d.TouchCartAdd {
		cartAt = &ev.Timestamp
	}
	if d.TouchPurchase {
		purchaseAt = &ev.Timestamp
	}

	var counters ProductCounters
	err := r.db.QueryRowxContext(ctx, upsertProductQuery,
		ev.ProductID, ev.ShopID,
		d.Views, d.UniqueViews, d.CartAdds, d.WishlistAdds, d.WishlistRemoves, d.Purchases,
		viewAt, cartAt, purchaseAt, ev.Timestamp,
	).StructScan(&counters)
	if err != nil {
		return ProductCounters{}, fmt.Errorf("failed to upsert product analytics: %w", err)
	}

	return counters, nil
}

const upsertShopQuery = `
	INSERT INTO shop_analytics (
		shop_id, visits, unique_visitors, total_product_views, total_cart_adds,
		total_wishlist_adds, total_purchases, last_visit_at, updated_at)
	VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (shop_id) DO UPDATE SET
		visits              = shop_analytics.visits + EXCLUDED.visits,
		total_product_views = shop_analytics.total_product_views + EXCLUDED.total_product_views,
		total_cart_adds     = shop_analytics.total_cart_adds + EXCLUDED.total_cart_adds,
		total_wishlist_adds = shop_analytics.total_wishlist_adds + EXCLUDED.total_wishlist_adds,
		total_purchases     = shop_analytics.total_purchases + EXCLUDED.total_purchases,
		last_visit_at       = COALESCE(EXCLUDED.last_visit_at, shop_analytics.last_visit_at),
		updated_at          = EXCLUDED.updated_at
`

func (r *repository) ApplyShop(ctx context.Context, ev *event.AnalyticsEvent, d ShopDelta) error {
	var visitAt *time.Time
	if d.TouchVisit {
		visitAt = &ev.Timestamp
	}

	_, err := r.db.ExecContext(ctx, upsertShopQuery,
		ev.ShopID,
		d.Visits, d.ProductViews, d.CartAdds, d.WishlistAdds, d.Purchases,
		visitAt, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert shop analytics: %w", err)
	}

	return nil
}

const updateProductRatesQuery = `
	UPDATE product_analytics
	SET view_to_cart_rate     = $2,
	    view_to_wishlist_rate = $3,
	    cart_to_purchase_rate = $4
	WHERE product_id = $1
`

func (r *repository) UpdateProductRates(ctx context.Context, productID string, rates ProductRates) error {
	result, err := r.db.ExecContext(ctx, updateProductRatesQuery,
		productID, rates.ViewToCart, rates.ViewToWishlist, rates.CartToPurchase,
	)
	if err != nil {
		return fmt.Errorf("failed to update product rates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Record deleted between the upsert and the rate write-back.
		return ErrProductNotFound
	}

	return nil
}

func (r *repository) GetUser(ctx context.Context, userID string) (*UserAnalytics, error) {
	query := `
		SELECT user_id, last_visited, total_views, total_cart_adds, total_wishlist,
		       total_purchases, country, city, device, updated_at
		FROM user_analytics
		WHERE user_id = $1
	`

	var user UserAnalytics
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user analytics: %w", err)
	}

	return &user, nil
}

func (r *repository) GetUserActions(ctx context.Context, userID string, limit int) ([]*UserAction, error) {
	query := `
		SELECT id, user_id, action, product_id, shop_id, created_at
		FROM user_actions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`

	var actions []*UserAction
	if err := r.db.SelectContext(ctx, &actions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get user actions: %w", err)
	}

	return actions, nil
}

func (r *repository) GetProduct(ctx context.Context, productID string) (*ProductAnalytics, error) {
	query := `
		SELECT product_id, shop_id, views, unique_views, cart_adds, wishlist_adds,
		       wishlist_removes, purchases, last_view_at, last_cart_add_at,
		       last_purchase_at, view_to_cart_rate, view_to_wishlist_rate,
		       cart_to_purchase_rate, updated_at
		FROM product_analytics
		WHERE product_id = $1
	`

	var product ProductAnalytics
	if err := r.db.GetContext(ctx, &product, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product analytics: %w", err)
	}

	return &product, nil
}

func (r *repository) GetShop(ctx context.Context, shopID string) (*ShopAnalytics, error) {
	query := `
		SELECT shop_id, visits, unique_visitors, total_product_views, total_cart_adds,
		       total_wishlist_adds, total_purchases, last_visit_at, updated_at
		FROM shop_analytics
		WHERE shop_id = $1
	`

	var shop ShopAnalytics
	if err := r.db.GetContext(ctx, &shop, query, shopID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("failed to get shop analytics: %w", err)
	}

	return &shop, nil
}

func (r *repository) GetTopProducts(ctx context.Context, limit int) ([]*ProductAnalytics, error) {
	query := `
		SELECT product_id, shop_id, views, unique_views, cart_adds, wishlist_adds,
		       wishlist_removes, purchases, last_view_at, last_cart_add_at,
		       last_purchase_at, view_to_cart_rate, view_to_wishlist_rate,
		       cart_to_purchase_rate, updated_at
		FROM product_analytics
		ORDER BY views DESC, product_id
		LIMIT $1
	`

	var products []*ProductAnalytics
	if err := r.db.SelectContext(ctx, &products, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}

	return products, nil
}
