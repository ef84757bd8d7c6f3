package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/virtualgoods/ordercore/internal/orders"
	"github.com/virtualgoods/ordercore/internal/provider"
	ordersrepo "github.com/virtualgoods/ordercore/internal/repos/orders"
	"github.com/virtualgoods/ordercore/internal/repos/users"
	"github.com/virtualgoods/ordercore/internal/services/orders"
)

// HandlerProvider wraps the order service and exposes HTTP handlers.
type HandlerProvider struct {
	svc *orders.Service
}

func NewHandler(svc *orders.Service) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps service/repo errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ordersrepo.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, users.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ordersrepo.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, orders.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be positive")
	case errors.Is(err, orders.ErrManualAPITransition):
		writeError(w, http.StatusBadRequest, "api purchase orders have no manual transition path")
	case errors.Is(err, ordersrepo.ErrDuplicateExternalID):
		writeError(w, http.StatusConflict, "duplicate external order id")
	case errors.Is(err, provider.ErrRemoteFailure):
		writeError(w, http.StatusBadGateway, "provider unavailable")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}

	return id, nil
}

func pathKind(r *http.Request) (domain.Kind, error) {
	return domain.ParseKind(chi.URLParam(r, "kind"))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}

		return errors.New("invalid JSON")
	}

	return nil
}

// --- Handlers ---

// RegisterUserHandler handles POST /users/{userID}
func (h *HandlerProvider) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.RegisterUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetBalanceHandler handles GET /users/{userID}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"balance": bal.StringFixed(2),
	})
}

// ListOrdersHandler handles GET /users/{userID}/orders/{kind}
func (h *HandlerProvider) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload any

	switch kind {
	case domain.KindCharging:
		payload, err = h.svc.ListChargingOrders(r.Context(), userID)
	case domain.KindPurchase:
		payload, err = h.svc.ListPurchaseOrders(r.Context(), userID)
	default:
		payload, err = h.svc.ListAPIOrders(r.Context(), userID)
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": payload})
}

type createOrderRequest struct {
	// charging
	Amount       string `json:"amount,omitempty"`
	PaymentProof string `json:"paymentProof,omitempty"`
	// purchase
	ItemID        int64  `json:"itemId,omitempty"`
	GameAccountID string `json:"gameAccountId,omitempty"`
	// api purchase
	GameCode     string `json:"gameCode,omitempty"`
	Denomination string `json:"denomination,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
	ServerID     string `json:"serverId,omitempty"`
	Remark       string `json:"remark,omitempty"`
	Price        string `json:"price,omitempty"`
}

// CreateOrderHandler handles POST /users/{userID}/orders/{kind}
func (h *HandlerProvider) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createOrderRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var id int64

	switch kind {
	case domain.KindCharging:
		amount, perr := decimal.NewFromString(req.Amount)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}

		id, err = h.svc.CreateChargingOrder(r.Context(), userID, amount, req.PaymentProof)

	case domain.KindPurchase:
		if req.ItemID <= 0 || req.GameAccountID == "" {
			writeError(w, http.StatusBadRequest, "itemId and gameAccountId required")
			return
		}

		id, err = h.svc.CreatePurchaseOrder(r.Context(), userID, req.ItemID, req.GameAccountID)

	default:
		price, perr := decimal.NewFromString(req.Price)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}

		if req.GameCode == "" || req.Denomination == "" || req.PlayerID == "" {
			writeError(w, http.StatusBadRequest, "gameCode, denomination and playerId required")
			return
		}

		id, err = h.svc.CreateAPIOrder(r.Context(), orders.CreateAPIOrderInput{
			UserID:       userID,
			GameCode:     req.GameCode,
			Denomination: req.Denomination,
			PlayerID:     req.PlayerID,
			ServerID:     req.ServerID,
			Remark:       req.Remark,
			Price:        price,
		})
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"orderId": id})
}

// SetStatusHandler handles POST /orders/{kind}/{orderID}/status
func (h *HandlerProvider) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orderID, err := pathInt64(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Status string `json:"status"`
	}

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.SetStatus(r.Context(), kind, orderID, req.Status)
	if err != nil {
		if _, perr := domain.ParseStatus(kind, req.Status); perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}

		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetAmountHandler handles POST /orders/charging/{orderID}/amount
func (h *HandlerProvider) SetAmountHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	err = h.svc.CorrectAmount(r.Context(), orderID, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SetNotesHandler handles POST /orders/{kind}/{orderID}/notes
func (h *HandlerProvider) SetNotesHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orderID, err := pathInt64(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.svc.SetNotes(r.Context(), kind, orderID, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
