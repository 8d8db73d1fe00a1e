package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for the backend actions. All
// queries are scoped by user_id; a row another user owns behaves
// exactly like a row that does not exist.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// =========================================================================
// CONTRACT OPERATIONS
// =========================================================================

// ListContracts returns all contracts for a user ordered by their row
// order, with positions attached.
func (r *Repository) ListContracts(ctx context.Context, userID string) ([]Contract, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, order_index, force_done, date, deadline, supplier, org,
		        date_fact, docs_sent, number, link_url, item, qty, plan_qty, plan_date,
		        delivered, created
		 FROM contracts
		 WHERE user_id = $1
		 ORDER BY order_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListContracts query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		c, err := scanContractFromRows(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListContracts rows failed: %w", repoLogPrefix, err)
	}

	if err := r.attachContractItems(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// GetContract finds one contract by id, with positions attached.
// Returns nil when the user has no such contract.
func (r *Repository) GetContract(ctx context.Context, userID, id string) (*Contract, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, order_index, force_done, date, deadline, supplier, org,
		        date_fact, docs_sent, number, link_url, item, qty, plan_qty, plan_date,
		        delivered, created
		 FROM contracts
		 WHERE id = $1 AND user_id = $2
		 LIMIT 1`, id, userID)

	c, err := scanContract(row)
	if err != nil || c == nil {
		return c, err
	}

	contracts := []Contract{*c}
	if err := r.attachContractItems(ctx, contracts); err != nil {
		return nil, err
	}
	return &contracts[0], nil
}

// ContractData carries the full state written for one contract row.
// The scalar item/qty/plan fields mirror the first position; callers
// compute that mirror before handing the data over.
type ContractData struct {
	ForceDone bool
	Date      *time.Time
	Deadline  *time.Time
	Supplier  string
	Org       string
	DateFact  *time.Time
	DocsSent  bool
	Number    string
	LinkURL   string
	Item      string
	Qty       float64
	PlanQty   float64
	PlanDate  *time.Time
	Delivered float64
	Items     []ContractItemData
}

// ContractItemData carries the state written for one position.
type ContractItemData struct {
	Item      string
	Qty       float64
	PlanQty   float64
	PlanDate  *time.Time
	DateFact  *time.Time
	Delivered float64
}

// CreateContractParams holds parameters for CreateContract.
type CreateContractParams struct {
	UserID string
	// InsertAfterID places the new row right below an existing one;
	// rows after it move down. Empty or unknown ids append at the end.
	InsertAfterID string
	Data          ContractData
}

// CreateContract inserts a contract and its positions, maintaining the
// per-user row order, and returns the stored contract.
func (r *Repository) CreateContract(ctx context.Context, params CreateContractParams) (*Contract, error) {
	slog.Info(fmt.Sprintf("%s - CreateContract user=%s number=%q", repoLogPrefix, params.UserID, params.Data.Number))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateContract begin tx: %w", repoLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	orderIndex := 0
	if params.InsertAfterID != "" {
		afterIndex, found, err := orderIndexOf(ctx, tx, params.UserID, params.InsertAfterID)
		if err != nil {
			return nil, err
		}
		if found {
			if err := shiftOrderIndexes(ctx, tx, params.UserID, afterIndex, 1); err != nil {
				return nil, err
			}
			orderIndex = afterIndex + 1
		}
	}
	if orderIndex == 0 {
		orderIndex, err = nextOrderIndex(ctx, tx, params.UserID)
		if err != nil {
			return nil, err
		}
	}

	id, err := insertContract(ctx, tx, params.UserID, orderIndex, params.Data)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s - CreateContract commit: %w", repoLogPrefix, err)
	}

	return r.GetContract(ctx, params.UserID, id)
}

// CreateContractsParams holds parameters for CreateContracts.
type CreateContractsParams struct {
	UserID string
	// AfterID places the block right below an existing row. Empty or
	// unknown ids append the block at the end.
	AfterID string
	Rows    []ContractData
}

// CreateContracts inserts a block of contracts in one transaction,
// keeping them contiguous in row order, and returns the stored rows in
// insertion order.
func (r *Repository) CreateContracts(ctx context.Context, params CreateContractsParams) ([]Contract, error) {
	if len(params.Rows) == 0 {
		return nil, nil
	}
	slog.Info(fmt.Sprintf("%s - CreateContracts user=%s rows=%d", repoLogPrefix, params.UserID, len(params.Rows)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateContracts begin tx: %w", repoLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	startIndex := -1
	if params.AfterID != "" {
		afterIndex, found, err := orderIndexOf(ctx, tx, params.UserID, params.AfterID)
		if err != nil {
			return nil, err
		}
		if found {
			startIndex = afterIndex
		}
	}
	if startIndex < 0 {
		// Empty or unknown afterId appends the block at the end.
		next, err := nextOrderIndex(ctx, tx, params.UserID)
		if err != nil {
			return nil, err
		}
		startIndex = next - 1
	}

	if err := shiftOrderIndexes(ctx, tx, params.UserID, startIndex, len(params.Rows)); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(params.Rows))
	for offset, data := range params.Rows {
		id, err := insertContract(ctx, tx, params.UserID, startIndex+offset+1, data)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s - CreateContracts commit: %w", repoLogPrefix, err)
	}

	return r.contractsByIDs(ctx, params.UserID, ids)
}

// UpdateContractParams holds parameters for UpdateContract.
type UpdateContractParams struct {
	UserID string
	ID     string
	Data   ContractData
}

// UpdateContract replaces a contract's state and positions. Returns
// nil when the user has no such contract. Row order is untouched.
func (r *Repository) UpdateContract(ctx context.Context, params UpdateContractParams) (*Contract, error) {
	slog.Info(fmt.Sprintf("%s - UpdateContract user=%s id=%s", repoLogPrefix, params.UserID, params.ID))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - UpdateContract begin tx: %w", repoLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	d := params.Data
	var id string
	err = tx.QueryRow(ctx,
		`UPDATE contracts SET
		   force_done = $3, date = $4, deadline = $5, supplier = $6, org = $7,
		   date_fact = $8, docs_sent = $9, number = $10, link_url = $11, item = $12,
		   qty = $13, plan_qty = $14, plan_date = $15, delivered = $16
		 WHERE id = $1 AND user_id = $2
		 RETURNING id`,
		params.ID, params.UserID,
		d.ForceDone, d.Date, d.Deadline, d.Supplier, d.Org,
		d.DateFact, d.DocsSent, d.Number, d.LinkURL, d.Item,
		d.Qty, d.PlanQty, d.PlanDate, d.Delivered,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - UpdateContract failed: %w", repoLogPrefix, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM contract_items WHERE contract_id = $1`, id); err != nil {
		return nil, fmt.Errorf("%s - UpdateContract clear items: %w", repoLogPrefix, err)
	}
	if err := insertContractItems(ctx, tx, id, d.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s - UpdateContract commit: %w", repoLogPrefix, err)
	}

	return r.GetContract(ctx, params.UserID, id)
}

// DeleteContract removes one contract and its positions. Reports
// whether a row was actually deleted.
func (r *Repository) DeleteContract(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM contracts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("%s - DeleteContract failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteContracts removes a batch of contracts. Ids the user does not
// own are skipped silently; returns the number of rows deleted.
func (r *Repository) DeleteContracts(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	slog.Info(fmt.Sprintf("%s - DeleteContracts user=%s ids=%d", repoLogPrefix, userID, len(ids)))

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM contracts WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("%s - DeleteContracts failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected(), nil
}

// ClearContractDelivery resets a contract's delivery confirmation
// (date_fact and delivered). Reports whether the contract existed.
func (r *Repository) ClearContractDelivery(ctx context.Context, userID, id string) (bool, error) {
	slog.Info(fmt.Sprintf("%s - ClearContractDelivery user=%s id=%s", repoLogPrefix, userID, id))

	tag, err := r.pool.Exec(ctx,
		`UPDATE contracts SET date_fact = NULL, delivered = 0
		 WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("%s - ClearContractDelivery failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ContractOrgs returns the org column of all the user's contracts in
// row order, blanks included. Dedup happens at the service layer.
func (r *Repository) ContractOrgs(ctx context.Context, userID string) ([]string, error) {
	return r.contractColumn(ctx, userID, "org")
}

// ContractSuppliers returns the supplier column of all the user's
// contracts in row order.
func (r *Repository) ContractSuppliers(ctx context.Context, userID string) ([]string, error) {
	return r.contractColumn(ctx, userID, "supplier")
}

func (r *Repository) contractColumn(ctx context.Context, userID, column string) ([]string, error) {
	// column is one of two fixed identifiers, never caller input.
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM contracts WHERE user_id = $1 ORDER BY order_index`, column),
		userID)
	if err != nil {
		return nil, fmt.Errorf("%s - contract %s query failed: %w", repoLogPrefix, column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s - contract %s scan failed: %w", repoLogPrefix, column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r *Repository) contractsByIDs(ctx context.Context, userID string, ids []string) ([]Contract, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, order_index, force_done, date, deadline, supplier, org,
		        date_fact, docs_sent, number, link_url, item, qty, plan_qty, plan_date,
		        delivered, created
		 FROM contracts
		 WHERE user_id = $1 AND id = ANY($2)
		 ORDER BY order_index`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("%s - contractsByIDs query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var contracts []Contract
	for rows.Next() {
		c, err := scanContractFromRows(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - contractsByIDs rows failed: %w", repoLogPrefix, err)
	}

	if err := r.attachContractItems(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

// attachContractItems loads the positions for every contract in the
// slice with one query and attaches them in position order.
func (r *Repository) attachContractItems(ctx context.Context, contracts []Contract) error {
	if len(contracts) == 0 {
		return nil
	}
	ids := make([]string, len(contracts))
	byID := make(map[string]*Contract, len(contracts))
	for i := range contracts {
		ids[i] = contracts[i].ID
		byID[contracts[i].ID] = &contracts[i]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, contract_id, position, item, qty, plan_qty, plan_date, date_fact, delivered
		 FROM contract_items
		 WHERE contract_id = ANY($1)
		 ORDER BY contract_id, position`, ids)
	if err != nil {
		return fmt.Errorf("%s - attachContractItems query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it ContractItem
		if err := rows.Scan(
			&it.ID, &it.ContractID, &it.Position, &it.Item,
			&it.Qty, &it.PlanQty, &it.PlanDate, &it.DateFact, &it.Delivered,
		); err != nil {
			return fmt.Errorf("%s - attachContractItems scan failed: %w", repoLogPrefix, err)
		}
		if c := byID[it.ContractID]; c != nil {
			c.Items = append(c.Items, it)
		}
	}
	return rows.Err()
}

func insertContract(ctx context.Context, tx pgx.Tx, userID string, orderIndex int, d ContractData) (string, error) {
	var id string
	err := tx.QueryRow(ctx,
		`INSERT INTO contracts
		   (user_id, order_index, force_done, date, deadline, supplier, org, date_fact,
		    docs_sent, number, link_url, item, qty, plan_qty, plan_date, delivered)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		userID, orderIndex,
		d.ForceDone, d.Date, d.Deadline, d.Supplier, d.Org, d.DateFact,
		d.DocsSent, d.Number, d.LinkURL, d.Item, d.Qty, d.PlanQty, d.PlanDate, d.Delivered,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s - insert contract failed: %w", repoLogPrefix, err)
	}
	return id, insertContractItems(ctx, tx, id, d.Items)
}

func insertContractItems(ctx context.Context, tx pgx.Tx, contractID string, items []ContractItemData) error {
	for i, it := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO contract_items
			   (contract_id, position, item, qty, plan_qty, plan_date, date_fact, delivered)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			contractID, i, it.Item, it.Qty, it.PlanQty, it.PlanDate, it.DateFact, it.Delivered)
		if err != nil {
			return fmt.Errorf("%s - insert contract item %d failed: %w", repoLogPrefix, i, err)
		}
	}
	return nil
}

func nextOrderIndex(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	var max *int
	err := tx.QueryRow(ctx,
		`SELECT MAX(order_index) FROM contracts WHERE user_id = $1`, userID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("%s - next order index failed: %w", repoLogPrefix, err)
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

func shiftOrderIndexes(ctx context.Context, tx pgx.Tx, userID string, after, by int) error {
	if by == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE contracts SET order_index = order_index + $3
		 WHERE user_id = $1 AND order_index > $2`, userID, after, by)
	if err != nil {
		return fmt.Errorf("%s - shift order indexes failed: %w", repoLogPrefix, err)
	}
	return nil
}

func orderIndexOf(ctx context.Context, tx pgx.Tx, userID, id string) (int, bool, error) {
	var idx int
	err := tx.QueryRow(ctx,
		`SELECT order_index FROM contracts WHERE id = $1 AND user_id = $2 LIMIT 1`,
		id, userID).Scan(&idx)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s - order index lookup failed: %w", repoLogPrefix, err)
	}
	return idx, true, nil
}

// =========================================================================
// WAREHOUSE ITEM OPERATIONS
// =========================================================================

// ListWarehouseItems returns the user's item catalogue ordered by name.
func (r *Repository) ListWarehouseItems(ctx context.Context, userID string) ([]WarehouseItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name, unit, active
		 FROM warehouse_items
		 WHERE user_id = $1
		 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListWarehouseItems query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var items []WarehouseItem
	for rows.Next() {
		var it WarehouseItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &it.Unit, &it.Active); err != nil {
			return nil, fmt.Errorf("%s - ListWarehouseItems scan failed: %w", repoLogPrefix, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetWarehouseItem finds one item by id. Returns nil when the user has
// no such item.
func (r *Repository) GetWarehouseItem(ctx context.Context, userID, id string) (*WarehouseItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, unit, active
		 FROM warehouse_items
		 WHERE id = $1 AND user_id = $2
		 LIMIT 1`, id, userID)
	return scanWarehouseItem(row)
}

// GetWarehouseItemByName finds one item by its exact name. Returns nil
// when the user has no such item. Incomes reference items by name, so
// every income write goes through this lookup.
func (r *Repository) GetWarehouseItemByName(ctx context.Context, userID, name string) (*WarehouseItem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name, unit, active
		 FROM warehouse_items
		 WHERE user_id = $1 AND name = $2
		 LIMIT 1`, userID, name)
	return scanWarehouseItem(row)
}

// CreateWarehouseItemParams holds parameters for CreateWarehouseItem.
type CreateWarehouseItemParams struct {
	UserID string
	Name   string
	Unit   string
}

// CreateWarehouseItem inserts a catalogue item, active by default.
func (r *Repository) CreateWarehouseItem(ctx context.Context, params CreateWarehouseItemParams) (*WarehouseItem, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO warehouse_items (user_id, name, unit, active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, user_id, name, unit, active`,
		params.UserID, params.Name, params.Unit)
	return scanWarehouseItem(row)
}

// UpdateWarehouseItemParams holds parameters for UpdateWarehouseItem.
type UpdateWarehouseItemParams struct {
	UserID string
	ID     string
	Name   string
	Unit   string
	Active bool
}

// UpdateWarehouseItem replaces an item's fields. Returns nil when the
// user has no such item.
func (r *Repository) UpdateWarehouseItem(ctx context.Context, params UpdateWarehouseItemParams) (*WarehouseItem, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE warehouse_items SET name = $3, unit = $4, active = $5
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, name, unit, active`,
		params.ID, params.UserID, params.Name, params.Unit, params.Active)
	return scanWarehouseItem(row)
}

// DeleteWarehouseItem removes one catalogue item. Reports whether a
// row was actually deleted.
func (r *Repository) DeleteWarehouseItem(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM warehouse_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("%s - DeleteWarehouseItem failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// =========================================================================
// WAREHOUSE INCOME OPERATIONS
// =========================================================================

// ListWarehouseIncomes returns the user's incomes, oldest first.
func (r *Repository) ListWarehouseIncomes(ctx context.Context, userID string) ([]WarehouseIncome, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, item, invoice_number, date, qty, unit, in_stock
		 FROM warehouse_incomes
		 WHERE user_id = $1
		 ORDER BY date NULLS FIRST, invoice_number, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListWarehouseIncomes query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var incomes []WarehouseIncome
	for rows.Next() {
		var in WarehouseIncome
		if err := rows.Scan(
			&in.ID, &in.UserID, &in.Item, &in.InvoiceNumber,
			&in.Date, &in.Qty, &in.Unit, &in.InStock,
		); err != nil {
			return nil, fmt.Errorf("%s - ListWarehouseIncomes scan failed: %w", repoLogPrefix, err)
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

// GetWarehouseIncome finds one income by id. Returns nil when the user
// has no such income.
func (r *Repository) GetWarehouseIncome(ctx context.Context, userID, id string) (*WarehouseIncome, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, item, invoice_number, date, qty, unit, in_stock
		 FROM warehouse_incomes
		 WHERE id = $1 AND user_id = $2
		 LIMIT 1`, id, userID)
	return scanWarehouseIncome(row)
}

// WarehouseIncomeData carries the full state written for one income.
type WarehouseIncomeData struct {
	Item          string
	InvoiceNumber string
	Date          *time.Time
	Qty           float64
	Unit          string
	InStock       bool
}

// CreateWarehouseIncome inserts an income row.
func (r *Repository) CreateWarehouseIncome(ctx context.Context, userID string, data WarehouseIncomeData) (*WarehouseIncome, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO warehouse_incomes (user_id, item, invoice_number, date, qty, unit, in_stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, user_id, item, invoice_number, date, qty, unit, in_stock`,
		userID, data.Item, data.InvoiceNumber, data.Date, data.Qty, data.Unit, data.InStock)
	return scanWarehouseIncome(row)
}

// UpdateWarehouseIncome replaces an income's fields. Returns nil when
// the user has no such income.
func (r *Repository) UpdateWarehouseIncome(ctx context.Context, userID, id string, data WarehouseIncomeData) (*WarehouseIncome, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE warehouse_incomes SET
		   item = $3, invoice_number = $4, date = $5, qty = $6, unit = $7, in_stock = $8
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, item, invoice_number, date, qty, unit, in_stock`,
		id, userID, data.Item, data.InvoiceNumber, data.Date, data.Qty, data.Unit, data.InStock)
	return scanWarehouseIncome(row)
}

// DeleteWarehouseIncome removes one income. Reports whether a row was
// actually deleted.
func (r *Repository) DeleteWarehouseIncome(ctx context.Context, userID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM warehouse_incomes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("%s - DeleteWarehouseIncome failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// SumInStockIncomes returns the total received quantity of one item,
// counting only incomes already on the shelf.
func (r *Repository) SumInStockIncomes(ctx context.Context, userID, item string) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(qty), 0)
		 FROM warehouse_incomes
		 WHERE user_id = $1 AND item = $2 AND in_stock`, userID, item).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s - SumInStockIncomes failed: %w", repoLogPrefix, err)
	}
	return total, nil
}

// =========================================================================
// PRICE LIST OPERATIONS
// =========================================================================

// ListPriceItems returns the user's price list in insertion order.
func (r *Repository) ListPriceItems(ctx context.Context, userID string) ([]PriceItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, code, name, price_no_vat, price_with_vat, note
		 FROM price_items
		 WHERE user_id = $1
		 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListPriceItems query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var items []PriceItem
	for rows.Next() {
		var p PriceItem
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Code, &p.Name,
			&p.PriceNoVat, &p.PriceWithVat, &p.Note,
		); err != nil {
			return nil, fmt.Errorf("%s - ListPriceItems scan failed: %w", repoLogPrefix, err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanContract(row pgx.Row) (*Contract, error) {
	var c Contract
	err := row.Scan(
		&c.ID, &c.UserID, &c.OrderIndex, &c.ForceDone, &c.Date, &c.Deadline,
		&c.Supplier, &c.Org, &c.DateFact, &c.DocsSent, &c.Number, &c.LinkURL,
		&c.Item, &c.Qty, &c.PlanQty, &c.PlanDate, &c.Delivered, &c.Created,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan contract failed: %w", repoLogPrefix, err)
	}
	return &c, nil
}

func scanContractFromRows(rows pgx.Rows) (*Contract, error) {
	var c Contract
	err := rows.Scan(
		&c.ID, &c.UserID, &c.OrderIndex, &c.ForceDone, &c.Date, &c.Deadline,
		&c.Supplier, &c.Org, &c.DateFact, &c.DocsSent, &c.Number, &c.LinkURL,
		&c.Item, &c.Qty, &c.PlanQty, &c.PlanDate, &c.Delivered, &c.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("%s - scan contract from rows failed: %w", repoLogPrefix, err)
	}
	return &c, nil
}

func scanWarehouseItem(row pgx.Row) (*WarehouseItem, error) {
	var it WarehouseItem
	err := row.Scan(&it.ID, &it.UserID, &it.Name, &it.Unit, &it.Active)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan warehouse item failed: %w", repoLogPrefix, err)
	}
	return &it, nil
}

func scanWarehouseIncome(row pgx.Row) (*WarehouseIncome, error) {
	var in WarehouseIncome
	err := row.Scan(
		&in.ID, &in.UserID, &in.Item, &in.InvoiceNumber,
		&in.Date, &in.Qty, &in.Unit, &in.InStock,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan warehouse income failed: %w", repoLogPrefix, err)
	}
	return &in, nil
}
