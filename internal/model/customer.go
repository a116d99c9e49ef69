package model

import "time"

// Customer represents a row of the `customer` table.  PasswordHash is never
// serialised; handlers return the struct as is.
//
// Fields:
//  ID               – customer_id primary key.
//  FirstName        – given name (trimmed on registration).
//  LastName         – family name (trimmed on registration).
//  Email            – unique, lower-cased address.
//  PasswordHash     – bcrypt for new rows; legacy rows may hold base64 or plain text.
//  RegistrationDate – when the account was created.
type Customer struct {
    ID               int64     `json:"customer_id"`
    FirstName        string    `json:"first_name"`
    LastName         string    `json:"last_name"`
    Email            string    `json:"email"`
    PasswordHash     string    `json:"-"`
    RegistrationDate time.Time `json:"registration_date"`
}

// CustomerSummary is the admin view of a customer with activity counts.
type CustomerSummary struct {
    Customer
    MapCount   int `json:"map_count"`
    OrderCount int `json:"order_count"`
}

// Admin mirrors the `admin` table.  Admins share no identity with customers.
type Admin struct {
    ID           int64      `json:"admin_id"`
    FirstName    string     `json:"first_name"`
    LastName     string     `json:"last_name"`
    Email        string     `json:"email"`
    PasswordHash string     `json:"-"`
    LastLogin    *time.Time `json:"last_login,omitempty"`
    CreatedAt    time.Time  `json:"created_at"`
}
