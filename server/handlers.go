package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"

	"goflare.io/storefront/checkout"
	"goflare.io/storefront/models"
	"goflare.io/storefront/session"
)

const maxUploadSize = 10 << 20

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func idParam(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, err := s.app.Session.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	redirect := "/"
	if identity.IsSuperuser {
		redirect = "/dashboard"
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity, "redirect": redirect})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.app.Session.Logout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req models.Registration
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity, err := s.app.Session.Register(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": identity, "redirect": "/login"})
}

func (s *Server) session(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	state, identity := s.app.Session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"loading": state == session.StateLoading,
		"user":    identity,
	})
}

func (s *Server) profile(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.app.Session.Identity())
}

func (s *Server) products(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	products, err := s.app.Products(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	categories, err := s.app.Categories.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) category(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.app.Categories.GetCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if category == nil {
		s.writeError(w, r, fmt.Errorf("%w: category %d", errNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, category)
}

type cartView struct {
	Items []models.LineItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int64             `json:"count"`
}

func (s *Server) cartView() cartView {
	return cartView{Items: s.app.Cart.Items(), Total: s.app.Cart.Total(), Count: s.app.Cart.Count()}
}

func (s *Server) cart(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) clearCart(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.app.Cart.Clear()
	writeJSON(w, http.StatusOK, s.cartView())
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req addToCartRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	product, err := s.app.Stock.Product(r.Context(), req.ProductID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.Cart.Add(product, req.Quantity)
	writeJSON(w, http.StatusOK, s.cartView())
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateQuantityRequest
	if err = decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.app.Cart.UpdateQuantity(id, req.Quantity)
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.app.Cart.Remove(id)
	writeJSON(w, http.StatusOK, s.cartView())
}

func (s *Server) beginCheckout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := s.app.Checkout.Begin(r.Context())
	if err != nil {
		var stageErr *checkout.StageError
		if errors.As(err, &stageErr) && stageErr.Order != nil {
			writeJSON(w, statusFor(err), map[string]any{
				"error": err.Error(),
				"order": stageErr.Order,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

type payRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentMethod   string `json:"payment_method"`
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req payRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, ok := s.app.Checkout.Session(req.PaymentIntentID)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: checkout %s", errNotFound, req.PaymentIntentID))
		return
	}

	// The redirect to order history outlives this request.
	if err := s.app.Checkout.Pay(context.WithoutCancel(r.Context()), sess, req.PaymentMethod); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": sess.Order, "redirect": checkout.OrdersPath})
}

func (s *Server) checkoutStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pi := ps.ByName("pi")
	status, ok := s.app.Checkout.Status(pi)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: checkout %s", errNotFound, pi))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment_intent_id": pi, "status": status})
}

func (s *Server) orders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	orders, err := s.app.Orders.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) order(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.app.Orders.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.app.Orders.PaymentStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err = s.app.Orders.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) retryPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := idParam(ps, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.app.Orders.RetryPayment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	form, err := productForm(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		form.Image = file
		form.ImageName = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	product, err := s.app.Stock.CreateProduct(r.Context(), form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func productForm(r *http.Request) (*models.ProductForm, error) {
	ints := map[string]*int64{}
	form := &models.ProductForm{Name: r.FormValue("name")}
	ints["category_id"] = &form.CategoryID
	ints["stock_quantity"] = &form.StockQuantity
	ints["reorder_threshold"] = &form.ReorderThreshold
	ints["reorder_quantity"] = &form.ReorderQuantity

	for field, dst := range ints {
		v := r.FormValue(field)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s", errBadRequest, field)
		}
		*dst = n
	}

	if v := r.FormValue("price_per_unit"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid price_per_unit", errBadRequest)
		}
		form.PricePerUnit = price
	}
	return form, nil
}

func (s *Server) lowStock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	levels, err := s.app.Stock.LowStock(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	summary, err := s.app.Stock.Summary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
