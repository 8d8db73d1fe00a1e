// Package db provides fixture-based seeding of demo data.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xotizwf-create/Uchet/pkg/demo"
)

const seedDemoLogPrefix = "db:seed_demo"

// SeedDemo inserts the fixture's rows for its user. If the user
// already owns any contracts or warehouse items the seed is skipped,
// so restarting with SEED_DEMO=true never duplicates data.
func SeedDemo(ctx context.Context, pool *pgxpool.Pool, f *demo.Fixture) error {
	if f == nil || f.User == "" {
		return fmt.Errorf("%s - fixture has no user", seedDemoLogPrefix)
	}
	slog.Info(fmt.Sprintf("%s - seeding fixture %q for user %s", seedDemoLogPrefix, f.Name, f.User))

	var seeded bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contracts WHERE user_id = $1)
		     OR EXISTS (SELECT 1 FROM warehouse_items WHERE user_id = $1)`,
		f.User).Scan(&seeded)
	if err != nil {
		return fmt.Errorf("%s - check existing data: %w", seedDemoLogPrefix, err)
	}
	if seeded {
		slog.Info(fmt.Sprintf("%s - user %s already has data, skipping", seedDemoLogPrefix, f.User))
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin tx: %w", seedDemoLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	for _, it := range f.Items {
		if it.Name == "" {
			slog.Warn(fmt.Sprintf("%s - skip item with empty name", seedDemoLogPrefix))
			continue
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO warehouse_items (user_id, name, unit, active)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (user_id, name) DO UPDATE SET
			   unit = EXCLUDED.unit,
			   active = EXCLUDED.active`,
			f.User, it.Name, it.Unit, it.Active.Or(true))
		if err != nil {
			return fmt.Errorf("%s - insert item %q: %w", seedDemoLogPrefix, it.Name, err)
		}
	}

	for _, in := range f.Incomes {
		_, err := tx.Exec(ctx,
			`INSERT INTO warehouse_incomes (user_id, item, invoice_number, date, qty, unit, in_stock)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.User, in.Item, in.InvoiceNumber, in.Date.Time(),
			in.Qty.Float64(), in.Unit, in.InStock.Or(true))
		if err != nil {
			return fmt.Errorf("%s - insert income %q: %w", seedDemoLogPrefix, in.InvoiceNumber, err)
		}
	}

	for i, c := range f.Contracts {
		// Scalars mirror the first position, same as the API write path.
		item, qty := c.Item, c.Qty.Float64()
		planQty, planDate := c.PlanQty.Float64(), c.PlanDate.Time()
		dateFact, delivered := c.DateFact.Time(), c.Delivered.Float64()
		if len(c.Items) > 0 {
			first := c.Items[0]
			item, qty = first.Item, first.Qty.Float64()
			planQty, planDate = first.PlanQty.Float64(), first.PlanDate.Time()
			dateFact, delivered = first.DateFact.Time(), first.Delivered.Float64()
		}

		var contractID string
		err := tx.QueryRow(ctx,
			`INSERT INTO contracts
			   (user_id, order_index, force_done, date, deadline, supplier, org, date_fact,
			    docs_sent, number, link_url, item, qty, plan_qty, plan_date, delivered)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			 RETURNING id`,
			f.User, i+1, c.ForceDone.Or(false), c.Date.Time(), c.Deadline.Time(),
			c.Supplier, c.Org, dateFact, c.DocsSent.Or(false), c.Number, c.LinkURL,
			item, qty, planQty, planDate, delivered).Scan(&contractID)
		if err != nil {
			return fmt.Errorf("%s - insert contract %q: %w", seedDemoLogPrefix, c.Number, err)
		}

		for pos, it := range c.Items {
			_, err := tx.Exec(ctx,
				`INSERT INTO contract_items
				   (contract_id, position, item, qty, plan_qty, plan_date, date_fact, delivered)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				contractID, pos, it.Item, it.Qty.Float64(), it.PlanQty.Float64(),
				it.PlanDate.Time(), it.DateFact.Time(), it.Delivered.Float64())
			if err != nil {
				return fmt.Errorf("%s - insert contract %q position %d: %w", seedDemoLogPrefix, c.Number, pos, err)
			}
		}
	}

	for _, p := range f.PriceItems {
		_, err := tx.Exec(ctx,
			`INSERT INTO price_items (user_id, code, name, price_no_vat, price_with_vat, note)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			f.User, p.Code, p.Name, p.PriceNoVat.Float64(), p.PriceWithVat.Float64(), p.Note)
		if err != nil {
			return fmt.Errorf("%s - insert price row %q: %w", seedDemoLogPrefix, p.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit: %w", seedDemoLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - seeded %d items, %d incomes, %d contracts, %d price rows",
		seedDemoLogPrefix, len(f.Items), len(f.Incomes), len(f.Contracts), len(f.PriceItems)))
	return nil
}
