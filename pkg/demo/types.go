// Package demo provides demo fixture loading for first-run seeding.
package demo

import "github.com/xotizwf-create/Uchet/pkg/norm"

// Fixture is the root demo data document. Every row belongs to User.
// Field names and value shapes match the wire contract, so a fixture
// file reads like recorded API traffic: dates accept the legacy
// formats, quantities accept strings with decimal commas.
type Fixture struct {
	Name       string        `json:"name"`
	User       string        `json:"user"`
	Items      []ItemRow     `json:"items"`
	Incomes    []IncomeRow   `json:"incomes"`
	Contracts  []ContractRow `json:"contracts"`
	PriceItems []PriceRow    `json:"priceItems"`
}

// ItemRow seeds one warehouse catalogue item.
type ItemRow struct {
	Name   string    `json:"name"`
	Unit   string    `json:"unit,omitempty"`
	Active norm.Flag `json:"active,omitempty"` // unset means active
}

// IncomeRow seeds one warehouse income.
type IncomeRow struct {
	Item          string        `json:"item"`
	InvoiceNumber string        `json:"invoiceNumber,omitempty"`
	Date          norm.Date     `json:"date,omitempty"`
	Qty           norm.Quantity `json:"qty"`
	Unit          string        `json:"unit,omitempty"`
	InStock       norm.Flag     `json:"inStock,omitempty"` // unset means on the shelf
}

// ContractRow seeds one contract. When Items is present the scalar
// item/qty/plan fields are taken from the first position, same as the
// API write path.
type ContractRow struct {
	ForceDone norm.Flag         `json:"forceDone,omitempty"`
	Date      norm.Date         `json:"date,omitempty"`
	Deadline  norm.Date         `json:"deadline,omitempty"`
	Supplier  string            `json:"supplier,omitempty"`
	Org       string            `json:"org,omitempty"`
	DateFact  norm.Date         `json:"dateFact,omitempty"`
	DocsSent  norm.Flag         `json:"docsSent,omitempty"`
	Number    string            `json:"number,omitempty"`
	LinkURL   string            `json:"linkUrl,omitempty"`
	Item      string            `json:"item,omitempty"`
	Qty       norm.Quantity     `json:"qty,omitempty"`
	PlanQty   norm.Quantity     `json:"planQty,omitempty"`
	PlanDate  norm.Date         `json:"planDate,omitempty"`
	Delivered norm.Quantity     `json:"delivered,omitempty"`
	Items     []ContractItemRow `json:"items,omitempty"`
}

// ContractItemRow seeds one contract position.
type ContractItemRow struct {
	Item      string        `json:"item"`
	Qty       norm.Quantity `json:"qty,omitempty"`
	PlanQty   norm.Quantity `json:"planQty,omitempty"`
	PlanDate  norm.Date     `json:"planDate,omitempty"`
	DateFact  norm.Date     `json:"dateFact,omitempty"`
	Delivered norm.Quantity `json:"delivered,omitempty"`
}

// PriceRow seeds one price list entry.
type PriceRow struct {
	Code         string        `json:"code,omitempty"`
	Name         string        `json:"name"`
	PriceNoVat   norm.Quantity `json:"priceNoVat,omitempty"`
	PriceWithVat norm.Quantity `json:"priceWithVat,omitempty"`
	Note         string        `json:"note,omitempty"`
}
