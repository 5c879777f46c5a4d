// internal/models/inventory.go
package models

import "time"

// InventoryItem tracks stock for a workspace. Quantity never goes below
// zero; adjustments that would are rejected, not clamped.
type InventoryItem struct {
	ID                string    `json:"id"`
	WorkspaceID       string    `json:"workspace_id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	CreatedAt         time.Time `json:"created_at"`
}

// LowStock reports whether the item should raise a low_stock alert.
func (i InventoryItem) LowStock() bool {
	return i.Quantity <= i.LowStockThreshold
}
