// Package queue defines message payloads exchanged over the message broker,
// the publisher used by the API process and the consumer run by the
// `consume` command.
package queue

// OrderCompletedQueue is the durable queue order events are routed to.
const OrderCompletedQueue = "mapit.order.completed"

// OrderCompletedEvent is published when a package order is completed, either
// through POST /api/orders or a registration that selected a package. It
// carries enough for downstream consumers to log, notify or bill without
// querying the primary database.
type OrderCompletedEvent struct {
    OrderID       int64   `json:"order_id"`
    CustomerID    int64   `json:"customer_id"`
    CustomerEmail string  `json:"customer_email,omitempty"`
    PackageID     int64   `json:"package_id"`
    PackageName   string  `json:"package_name"`
    AllowedMaps   int     `json:"allowed_maps"`
    Total         float64 `json:"total"`
    Source        string  `json:"source"` // "order" or "registration"
    CompletedAt   string  `json:"completed_at"`
}
