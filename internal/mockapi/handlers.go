package mockapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devdazzlee/sphire-client/internal/cart"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/types"
)

type authResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	rec, ok := s.state.findUser(req.Email)
	if !ok {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
		return
	}
	if err := s.checkPassword(rec, req.Password); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	tok, err := s.mintToken(rec.user)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, authResponse{User: rec.user, Token: tok})
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	if _, exists := s.state.findUser(req.Email); exists {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "email already registered"))
		return
	}
	user, err := s.state.addUser(req.Name, req.Email, req.Password, types.RoleCustomer)
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user"))
		return
	}
	tok, err := s.mintToken(user)
	if err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	writeSuccess(w, authResponse{User: user, Token: tok})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, userFromContext(r.Context()))
}

type productPage struct {
	Products []types.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	category := r.URL.Query().Get("category")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	s.state.mu.Lock()
	all := make([]types.Product, len(s.state.products))
	copy(all, s.state.products)
	s.state.mu.Unlock()

	matched := make([]types.Product, 0, len(all))
	for _, p := range all {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		matched = append(matched, p)
	}

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	writeSuccess(w, productPage{
		Products: matched[start:end],
		Total:    len(matched),
		Page:     page,
		Limit:    limit,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
		return
	}
	if p, ok := s.findProduct(id); ok {
		writeSuccess(w, p)
		return
	}
	writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	seen := map[string]struct{}{}
	categories := []string{}
	for _, p := range s.state.products {
		if _, dup := seen[p.Category]; dup {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	writeSuccess(w, categories)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	s.state.mu.Lock()
	snapshot := cart.Reduce(s.state.carts[user.ID])
	s.state.mu.Unlock()
	writeSuccess(w, snapshot)
}

type cartAddRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	product, ok := s.findProduct(req.ProductID)
	if !ok {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[user.ID]
	merged := false
	for i := range lines {
		if lines[i].Product.ID == product.ID {
			lines[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, types.CartLine{Product: product, Quantity: req.Quantity})
	}
	s.state.carts[user.ID] = lines
	writeSuccess(w, cart.Reduce(lines))
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
		return
	}
	var req cartUpdateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := s.state.carts[user.ID]
	// quantity <= 0 means removal, same policy the client enforces
	if req.Quantity <= 0 {
		lines = dropLine(lines, id)
	} else {
		for i := range lines {
			if lines[i].Product.ID == id {
				lines[i].Quantity = req.Quantity
			}
		}
	}
	s.state.carts[user.ID] = lines
	writeSuccess(w, cart.Reduce(lines))
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	lines := dropLine(s.state.carts[user.ID], id)
	s.state.carts[user.ID] = lines
	writeSuccess(w, cart.Reduce(lines))
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	s.state.carts[user.ID] = nil
	writeSuccess(w, types.EmptyCart())
}

type createOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(r.Context(), s.logg, w, err)
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snapshot := cart.Reduce(s.state.carts[user.ID])
	if len(snapshot.Lines) == 0 {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
		return
	}

	items := make([]types.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, types.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Price:     line.Product.Price,
			Quantity:  line.Quantity,
		})
	}
	order := types.Order{
		ID:        uuid.New(),
		Items:     items,
		Total:     snapshot.Total,
		Status:    types.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.state.orders[user.ID] = append(s.state.orders[user.ID], order)
	s.state.carts[user.ID] = nil
	writeSuccess(w, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	orders := make([]types.Order, len(s.state.orders[user.ID]))
	copy(orders, s.state.orders[user.ID])
	writeSuccess(w, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for _, order := range s.state.orders[user.ID] {
		if order.ID == id {
			writeSuccess(w, order)
			return
		}
	}
	writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
		return
	}
	user := userFromContext(r.Context())

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	orders := s.state.orders[user.ID]
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		if orders[i].Status != types.OrderStatusPending && orders[i].Status != types.OrderStatusConfirmed {
			writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "order can no longer be cancelled"))
			return
		}
		orders[i].Status = types.OrderStatusCancelled
		writeSuccess(w, orders[i])
		return
	}
	writeError(r.Context(), s.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
}

func (s *Server) findProduct(id uuid.UUID) (types.Product, bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, p := range s.state.products {
		if p.ID == id {
			return p, true
		}
	}
	return types.Product{}, false
}

func dropLine(lines []types.CartLine, productID uuid.UUID) []types.CartLine {
	kept := make([]types.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Product.ID == productID {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}
