package model

import "time"

// Activity is a local record of a change made through the dashboard.
type Activity struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	ProductID *int64    `json:"product_id,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity actions.
const (
	ActionProductCreated = "product_created"
	ActionProductUpdated = "product_updated"
	ActionProductDeleted = "product_deleted"
	ActionStockSet       = "stock_set"
	ActionStockAdjusted  = "stock_adjusted"
	ActionPhotoUploaded  = "photo_uploaded"
)
