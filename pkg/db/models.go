package db

import "time"

// Contract represents a row in the contracts table, with its positions
// from contract_items attached.
//
// The scalar item/qty/plan fields mirror the first position. Rows
// created before multi-position contracts existed only have the
// scalars, so readers fall back to them when Items is empty.
type Contract struct {
	ID         string
	UserID     string
	OrderIndex int
	ForceDone  bool
	Date       *time.Time
	Deadline   *time.Time
	Supplier   string
	Org        string
	DateFact   *time.Time
	DocsSent   bool
	Number     string
	LinkURL    string
	Item       string
	Qty        float64
	PlanQty    float64
	PlanDate   *time.Time
	Delivered  float64
	Created    time.Time

	Items []ContractItem
}

// ContractItem represents a row in the contract_items table.
type ContractItem struct {
	ID         int64
	ContractID string
	Position   int
	Item       string
	Qty        float64
	PlanQty    float64
	PlanDate   *time.Time
	DateFact   *time.Time
	Delivered  float64
}

// WarehouseItem represents a row in the warehouse_items table. It is
// serialized directly into action responses, so the tags carry the
// legacy field casing.
type WarehouseItem struct {
	ID     string `json:"id"`
	UserID string `json:"-"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Active bool   `json:"active"`
}

// WarehouseIncome represents a row in the warehouse_incomes table.
// Incomes with in_stock = FALSE are ordered but not yet on the shelf
// and do not count toward stock.
type WarehouseIncome struct {
	ID            string
	UserID        string
	Item          string
	InvoiceNumber string
	Date          *time.Time
	Qty           float64
	Unit          string
	InStock       bool
}

// PriceItem represents a row in the price_items table. It is
// serialized directly into action responses; id and user_id never
// leave the server.
type PriceItem struct {
	ID           int64   `json:"-"`
	UserID       string  `json:"-"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	PriceNoVat   float64 `json:"priceNoVat"`
	PriceWithVat float64 `json:"priceWithVat"`
	Note         string  `json:"note"`
}
