package model

import (
    "encoding/json"
    "time"

    "github.com/google/uuid"
)

// Zone is a polygon drawn on a map.  Coordinates is the JSON array of
// [lat, lng] pairs exactly as the client sent it.  CustomerID is copied
// from the map owner when the zone is created so that zones can be listed
// per customer without joining through map.
type Zone struct {
    ID          uuid.UUID       `json:"id"`
    MapID       int64           `json:"map_id"`
    CustomerID  *int64          `json:"customer_id"`
    Name        string          `json:"name"`
    Color       string          `json:"color"`
    Coordinates json.RawMessage `json:"coordinates"`
    CreatedAt   time.Time       `json:"created_at"`
    UpdatedAt   time.Time       `json:"updated_at"`
}
