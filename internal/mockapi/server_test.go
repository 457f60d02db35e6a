package mockapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devdazzlee/sphire-client/pkg/api"
	"github.com/devdazzlee/sphire-client/pkg/config"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

func newTestStack(t *testing.T) *api.Client {
	t.Helper()
	server, err := NewServer(config.MockConfig{
		JWTSecret:         "test-secret",
		JWTExpiryMinutes:  60,
		SeedDemoCatalog:   true,
		SeedAdminEmail:    "admin@sphire.dev",
		SeedAdminPassword: "admin123",
	}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	client, err := api.New(config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return client
}

func TestRegisterLoginAndMe(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	ctx := context.Background()

	payload, err := client.Register(ctx, api.RegisterInput{Name: "Jo", Email: "jo@x.y", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleCustomer, payload.User.Role)
	assert.NotEmpty(t, payload.Token)

	// duplicate registration is rejected with a conflict
	_, err = client.Register(ctx, api.RegisterInput{Name: "Jo", Email: "jo@x.y", Password: "secret1"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	login, err := client.Login(ctx, api.LoginInput{Email: "jo@x.y", Password: "secret1"})
	require.NoError(t, err)

	me, err := client.Me(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "jo@x.y", me.Email)

	_, err = client.Login(ctx, api.LoginInput{Email: "jo@x.y", Password: "wrongpw"})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestSeededAdminCanAuthenticate(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	login, err := client.Login(context.Background(), api.LoginInput{Email: "admin@sphire.dev", Password: "admin123"})
	require.NoError(t, err)
	assert.True(t, login.User.IsAdmin())
}

func TestCatalogBrowsing(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	ctx := context.Background()

	page, err := client.ListProducts(ctx, api.ListProductsParams{Category: "kitchen"})
	require.NoError(t, err)
	require.NotEmpty(t, page.Products)
	for _, p := range page.Products {
		assert.Equal(t, "kitchen", p.Category)
	}

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, categories, "kitchen")
	assert.Contains(t, categories, "office")

	detail, err := client.GetProduct(ctx, page.Products[0].ID)
	require.NoError(t, err)
	assert.Equal(t, page.Products[0].Name, detail.Name)
}

func TestCartLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	ctx := context.Background()

	reg, err := client.Register(ctx, api.RegisterInput{Name: "Jo", Email: "cart@x.y", Password: "secret1"})
	require.NoError(t, err)
	tok := reg.Token

	page, err := client.ListProducts(ctx, api.ListProductsParams{})
	require.NoError(t, err)
	require.True(t, len(page.Products) >= 2)
	a, b := page.Products[0], page.Products[1]

	snap, err := client.AddToCart(ctx, tok, a.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ItemCount)

	// adding the same product merges into one line
	snap, err = client.AddToCart(ctx, tok, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, 3, snap.Lines[0].Quantity)

	snap, err = client.AddToCart(ctx, tok, b.ID, 1)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)

	wantTotal := a.Price.Mul(decimal.NewFromInt(3)).Add(b.Price)
	assert.True(t, snap.Total.Equal(wantTotal), "total %s != %s", snap.Total, wantTotal)

	// update to zero removes the line
	snap, err = client.UpdateCartItem(ctx, tok, b.ID, 0)
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)

	snap, err = client.ClearCart(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
	assert.Equal(t, 0, snap.ItemCount)
	assert.True(t, snap.Total.Equal(decimal.Zero))
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	ctx := context.Background()

	reg, err := client.Register(ctx, api.RegisterInput{Name: "Jo", Email: "orders@x.y", Password: "secret1"})
	require.NoError(t, err)
	tok := reg.Token

	// ordering an empty cart is rejected
	_, err = client.CreateOrder(ctx, tok, api.CreateOrderInput{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	page, err := client.ListProducts(ctx, api.ListProductsParams{})
	require.NoError(t, err)
	_, err = client.AddToCart(ctx, tok, page.Products[0].ID, 2)
	require.NoError(t, err)

	order, err := client.CreateOrder(ctx, tok, api.CreateOrderInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)

	// placing the order empties the cart
	snap, err := client.GetCart(ctx, tok)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)

	orders, err := client.ListOrders(ctx, tok)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	got, err := client.GetOrder(ctx, tok, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	cancelled, err := client.CancelOrder(ctx, tok, order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusCancelled, cancelled.Status)

	// a cancelled order cannot be cancelled again
	_, err = client.CancelOrder(ctx, tok, order.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestUnauthenticatedCartIsRejected(t *testing.T) {
	t.Parallel()

	client := newTestStack(t)
	_, err := client.GetCart(context.Background(), "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
