package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecomstream/analytics-pipeline/internal/aggregate"
)

type fakeReadRepo struct {
	users    map[string]*aggregate.UserAnalytics
	actions  map[string][]*aggregate.UserAction
	products map[string]*aggregate.ProductAnalytics
	shops    map[string]*aggregate.ShopAnalytics
	top      []*aggregate.ProductAnalytics
}

func (f *fakeReadRepo) GetUser(ctx context.Context, userID string) (*aggregate.UserAnalytics, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, aggregate.ErrUserNotFound
}

func (f *fakeReadRepo) GetUserActions(ctx context.Context, userID string, limit int) ([]*aggregate.UserAction, error) {
	actions := f.actions[userID]
	if len(actions) > limit {
		actions = actions[:limit]
	}
	return actions, nil
}

func (f *fakeReadRepo) GetProduct(ctx context.Context, productID string) (*aggregate.ProductAnalytics, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, aggregate.ErrProductNotFound
}

func (f *fakeReadRepo) GetShop(ctx context.Context, shopID string) (*aggregate.ShopAnalytics, error) {
	if s, ok := f.shops[shopID]; ok {
		return s, nil
	}
	return nil, aggregate.ErrShopNotFound
}

func (f *fakeReadRepo) GetTopProducts(ctx context.Context, limit int) ([]*aggregate.ProductAnalytics, error) {
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func newTestRouter(repo *fakeReadRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := NewService(repo, nil, 50, zap.NewNop())
	handler := NewHandler(service, zap.NewNop())

	router := gin.New()
	handler.Register(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetUser_ReturnsProjectionWithActions(t *testing.T) {
	repo := &fakeReadRepo{
		users: map[string]*aggregate.UserAnalytics{
			"u1": {
				UserID:        "u1",
				LastVisited:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				TotalViews:    7,
				TotalWishlist: -1,
			},
		},
		actions: map[string][]*aggregate.UserAction{
			"u1": {
				{UserID: "u1", Action: "product_view", ProductID: "p1"},
			},
		},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/v1/analytics/users/u1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var report struct {
		UserID        string `json:"user_id"`
		TotalViews    int64  `json:"total_views"`
		TotalWishlist int64  `json:"total_wishlist"`
		RecentActions []struct {
			Action    string `json:"action"`
			ProductID string `json:"product_id"`
		} `json:"recent_actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}

	if report.UserID != "u1" || report.TotalViews != 7 {
		t.Fatalf("report = %+v, want u1 with 7 views", report)
	}
	if report.TotalWishlist != -1 {
		t.Fatalf("total_wishlist = %d, want -1 passed through", report.TotalWishlist)
	}
	if len(report.RecentActions) != 1 || report.RecentActions[0].Action != "product_view" {
		t.Fatalf("recent_actions = %+v, want one product_view", report.RecentActions)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeReadRepo{}), "/api/v1/analytics/users/nobody")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetProduct_IncludesRates(t *testing.T) {
	repo := &fakeReadRepo{
		products: map[string]*aggregate.ProductAnalytics{
			"p2": {
				ProductID:      "p2",
				Views:          50,
				CartAdds:       10,
				ViewToCartRate: 20.00,
			},
		},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/v1/analytics/products/p2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var product struct {
		ProductID      string  `json:"product_id"`
		Views          int64   `json:"views"`
		ViewToCartRate float64 `json:"view_to_cart_rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &product); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if product.ViewToCartRate != 20.00 {
		t.Fatalf("view_to_cart_rate = %v, want 20.00", product.ViewToCartRate)
	}
}

func TestGetShop_NotFound(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeReadRepo{}), "/api/v1/analytics/shops/s404")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetTopProducts_RespectsLimit(t *testing.T) {
	repo := &fakeReadRepo{
		top: []*aggregate.ProductAnalytics{
			{ProductID: "p1", Views: 100},
			{ProductID: "p2", Views: 50},
			{ProductID: "p3", Views: 10},
		},
	}

	rec := doRequest(t, newTestRouter(repo), "/api/v1/analytics/top-products?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count    int `json:"count"`
		Products []struct {
			ProductID string `json:"product_id"`
		} `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Count != 2 || body.Products[0].ProductID != "p1" {
		t.Fatalf("body = %+v, want 2 products led by p1", body)
	}
}

func TestGetTopProducts_RejectsBadLimit(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeReadRepo{}), "/api/v1/analytics/top-products?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestRouter(&fakeReadRepo{}), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
