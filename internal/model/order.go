package model

import "time"

// Order statuses.  No payment gateway exists, so orders created by the
// service are completed immediately.
const (
    OrderPending   = "pending"
    OrderCompleted = "completed"
)

// Package is a priced subscription tier.  AllowedMaps is the number of maps
// the tier is meant to allow; Priority orders the catalog.
type Package struct {
    ID          int64   `json:"package_id"`
    Name        string  `json:"name"`
    Price       float64 `json:"price"`
    AllowedMaps int     `json:"allowed_maps"`
    Priority    int     `json:"priority"`
    Active      bool    `json:"active"`
}

// Order records a customer's purchase of a package.  Total is the package
// price copied at order time.
type Order struct {
    ID          int64     `json:"id"`
    CustomerID  int64     `json:"customer_id"`
    PackageID   int64     `json:"package_id"`
    PackageName string    `json:"package_name,omitempty"`
    DateTime    time.Time `json:"date_time"`
    Total       float64   `json:"total"`
    Status      string    `json:"status"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

// AdminOrder adds customer details to an order for the admin dashboard.
type AdminOrder struct {
    Order
    CustomerFirstName string `json:"customer_first_name"`
    CustomerLastName  string `json:"customer_last_name"`
    CustomerEmail     string `json:"customer_email"`
}

// CurrentPackage is a customer's active tier: the package of the most
// recent completed order.
type CurrentPackage struct {
    Package
    OrderID     int64     `json:"order_id"`
    PurchasedAt time.Time `json:"purchased_at"`
}

// Stats aggregates counts for the admin dashboard.
type Stats struct {
    Customers       int     `json:"customers"`
    Maps            int     `json:"maps"`
    ActiveMaps      int     `json:"active_maps"`
    Zones           int     `json:"zones"`
    Orders          int     `json:"orders"`
    CompletedOrders int     `json:"completed_orders"`
    Revenue         float64 `json:"revenue"`
}
