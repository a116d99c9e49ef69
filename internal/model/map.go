package model

import (
    "encoding/json"
    "time"
)

// AccessOwner is the access level recorded in customer_map for the customer
// whose id is stored on the map row.
const AccessOwner = "owner"

// Map represents a customer's canvas.  MapData and MapBounds are opaque JSON
// documents (viewport, zoom, center) owned by the front end; they are stored
// and returned untouched.
//
// Fields:
//  ID          – map_id primary key.
//  Title       – required display title.
//  Description – optional free text.
//  MapCode     – unique shareable code, distinct from the numeric id.
//  CustomerID  – owning customer; authoritative over customer_map.
//  Country     – optional country label.
//  MapData     – viewport blob (nullable).
//  MapBounds   – bounds blob (nullable).
//  Active      – whether the map is shown in listings.
type Map struct {
    ID          int64           `json:"map_id"`
    Title       string          `json:"title"`
    Description *string         `json:"description"`
    MapCode     string          `json:"map_code"`
    CustomerID  int64           `json:"customer_id"`
    Country     *string         `json:"country"`
    MapData     json.RawMessage `json:"map_data"`
    MapBounds   json.RawMessage `json:"map_bounds"`
    Active      bool            `json:"active"`
    CreatedAt   time.Time       `json:"created_at"`
    UpdatedAt   time.Time       `json:"updated_at"`
}

// MapSummary is a map together with its zone count, as listed on the
// customer dashboard.
type MapSummary struct {
    Map
    ZoneCount int `json:"zone_count"`
}

// AdminMapSummary adds owner details for the admin dashboard.
type AdminMapSummary struct {
    MapSummary
    OwnerFirstName string `json:"owner_first_name"`
    OwnerLastName  string `json:"owner_last_name"`
    OwnerEmail     string `json:"owner_email"`
}
