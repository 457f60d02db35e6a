// Package api is the typed client for the Sphire REST backend. Every method
// performs exactly one HTTP request and decodes the uniform response
// envelope; there are no retries, no caching and no batching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/pkg/config"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

const requestIDHeader = "X-Request-Id"

type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
}

// New builds a client for the configured base URL. The underlying
// http.Client carries the configured timeout; individual calls can still be
// bounded tighter through their context.
func New(cfg config.APIConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api base url is required")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}, nil
}

// AuthPayload is returned by login and register.
type AuthPayload struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (c *Client) Login(ctx context.Context, input LoginInput) (*AuthPayload, error) {
	var out AuthPayload
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthPayload, error) {
	var out AuthPayload
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me validates the token against the server and returns the current user.
func (c *Client) Me(ctx context.Context, token string) (*types.User, error) {
	var out types.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProductsParams narrows the catalog listing. Zero values are omitted
// from the query string.
type ListProductsParams struct {
	Search   string
	Category string
	Page     int
	Limit    int
}

type ProductPage struct {
	Products []types.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

func (c *Client) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	q := url.Values{}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	path := "/products"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out ProductPage
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	var out types.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+id.String(), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/products/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type cartAddInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type cartUpdateInput struct {
	Quantity int `json:"quantity"`
}

func (c *Client) GetCart(ctx context.Context, token string) (*types.CartState, error) {
	var out types.CartState
	if err := c.do(ctx, http.MethodGet, "/cart", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity of a product and returns the server's full cart
// snapshot. The snapshot, not a delta, is what callers apply locally.
func (c *Client) AddToCart(ctx context.Context, token string, productID uuid.UUID, quantity int) (*types.CartState, error) {
	var out types.CartState
	if err := c.do(ctx, http.MethodPost, "/cart/add", token, cartAddInput{ProductID: productID, Quantity: quantity}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, token string, productID uuid.UUID, quantity int) (*types.CartState, error) {
	var out types.CartState
	if err := c.do(ctx, http.MethodPut, "/cart/update/"+productID.String(), token, cartUpdateInput{Quantity: quantity}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveFromCart(ctx context.Context, token string, productID uuid.UUID) (*types.CartState, error) {
	var out types.CartState
	if err := c.do(ctx, http.MethodDelete, "/cart/remove/"+productID.String(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearCart(ctx context.Context, token string) (*types.CartState, error) {
	var out types.CartState
	if err := c.do(ctx, http.MethodDelete, "/cart/clear", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrderInput carries checkout details; the server builds the order
// from the authenticated user's cart.
type CreateOrderInput struct {
	ShippingAddress string `json:"shippingAddress,omitempty"`
}

func (c *Client) CreateOrder(ctx context.Context, token string, input CreateOrderInput) (*types.Order, error) {
	var out types.Order
	if err := c.do(ctx, http.MethodPost, "/orders", token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, token string) ([]types.Order, error) {
	var out []types.Order
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, token string, id uuid.UUID) (*types.Order, error) {
	var out types.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+id.String(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelOrder(ctx context.Context, token string, id uuid.UUID) (*types.Order, error) {
	var out types.Order
	if err := c.do(ctx, http.MethodPut, "/orders/"+id.String()+"/cancel", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs a single request and decodes the envelope. Transport failures
// map to CodeNetwork, unparseable bodies to CodeDecode, and status:"error"
// envelopes to the code implied by the HTTP status with the server message
// passed through.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "api request failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "reading response body")
	}

	var envelope types.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecode, err, "malformed response body")
	}

	switch envelope.Status {
	case types.StatusSuccess:
	case types.StatusError:
		code := pkgerrors.CodeForHTTPStatus(resp.StatusCode)
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return pkgerrors.New(code, msg)
	default:
		return pkgerrors.New(pkgerrors.CodeDecode, fmt.Sprintf("unexpected envelope status %q", envelope.Status))
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecode, err, "decoding response data")
	}
	return nil
}
