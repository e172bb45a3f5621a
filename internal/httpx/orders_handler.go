package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/shopkit/go-shop-api/internal/kafka"
	"github.com/shopkit/go-shop-api/internal/redisx"
	"github.com/shopkit/go-shop-api/internal/shop"
)

// OrderService is what the handler needs from the core; the concrete type
// is *shop.Service.
type OrderService interface {
	Place(ctx context.Context, req shop.PlaceOrderRequest) (shop.Order, []shop.OrderItem, error)
	Get(ctx context.Context, orderID string) (shop.OrderView, error)
	List(ctx context.Context) ([]shop.Order, error)
}

// Publisher is the part of kafkax.Producer the handler uses.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Service        OrderService
	PlacedProducer Publisher
	RejectProducer Publisher
	Redis          *redis.Client // optional read cache; nil disables it
	ServiceName    string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders", h.listOrders)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req shop.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Error: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, items, err := h.Service.Place(ctx, req)
	if err != nil {
		var ise *shop.InsufficientStockError
		if errors.As(err, &ise) {
			h.publishRejected(req.UserID, ise.Shortfalls, r.Header.Get("X-Request-Id"))
		}
		writeError(w, err)
		return
	}

	view := shop.OrderView{Order: order, Items: items, TotalCents: shop.DeriveTotal(items)}
	h.publishPlaced(view, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, view)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// read-through cache; orders are immutable once placed
	key := fmt.Sprintf(redisx.KeyOrderView, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	view, err := h.Service.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(view)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderView).Err()
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Service.List(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) publishPlaced(view shop.OrderView, trace string) {
	if h.PlacedProducer == nil {
		return
	}
	items := make([]shop.ItemPrice, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, shop.ItemPrice{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.ServiceName,
		TraceID:       trace,
		CorrelationID: view.Order.ID,
		Payload: kafkax.MustMarshal(shop.OrderPlacedPayload{
			OrderID:    view.Order.ID,
			UserID:     view.Order.UserID,
			Items:      items,
			TotalCents: view.TotalCents,
		}),
	}
	h.PlacedProducer.Publish(shop.PartitionKey(view.Order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishRejected(userID string, details []shop.StockShortfall, trace string) {
	if h.RejectProducer == nil {
		return
	}
	ev := shop.Envelope{
		EventID:      uuid.NewString(),
		EventType:    shop.EventStockRejected,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     h.ServiceName,
		TraceID:      trace,
		Payload: kafkax.MustMarshal(shop.StockRejectedPayload{
			UserID: userID, Reason: "OUT_OF_STOCK", Details: details,
		}),
	}
	h.RejectProducer.Publish([]byte(userID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
