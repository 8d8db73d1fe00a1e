// Package db provides backend data clearing.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearData truncates all backend tables (contract_items, contracts,
// warehouse_incomes, warehouse_expenses, warehouse_items, price_items).
// Schema is preserved; only data is removed. RESTART IDENTITY resets sequences.
func ClearData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing backend tables", clearLogPrefix))

	// Truncate in dependency order: positions first, then contracts.
	// CASCADE handles any other tables that reference these.
	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		contract_items,
		contracts,
		warehouse_incomes,
		warehouse_expenses,
		warehouse_items,
		price_items
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Backend data cleared", clearLogPrefix))
	return nil
}
