package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"demandcast/internal/domain"
)

// Postgres reads the catalog from inventory_master and history from
// inventory_daily, with stock limits taken from inventory_department_mapping
// (smallest minimum, largest capacity, longest lead time across departments).
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.WithHint(
			errors.New("database url is empty"),
			"Set the variable named by catalog.database_url_env, e.g. in .env.",
		)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "open database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const itemsQuery = `
	SELECT inventory_id, COALESCE(item_name, '')
	FROM inventory_master
	ORDER BY inventory_id`

func (p *Postgres) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := p.pool.Query(ctx, itemsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "query inventory_master")
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(&item.ID, &item.DisplayName); err != nil {
			return nil, errors.Wrap(err, "scan inventory_master")
		}
		item.ID = domain.NormalizeID(item.ID)
		items = append(items, item)
	}
	return items, errors.Wrap(rows.Err(), "iterate inventory_master")
}

const seriesColumns = `
	SELECT d.inventory_id, d.date::timestamp,
	       d.opening_stock::float8, d.closing_stock::float8,
	       d.quantity_consumed::float8, d.quantity_restocked::float8,
	       m.lead_time_days, m.min_stock_limit, m.max_capacity
	FROM inventory_daily d
	LEFT JOIN (
		SELECT inventory_id,
		       MAX(lead_time_days)::float8 AS lead_time_days,
		       MIN(min_stock_limit)::float8 AS min_stock_limit,
		       MAX(max_capacity)::float8 AS max_capacity
		FROM inventory_department_mapping
		GROUP BY inventory_id
	) m ON m.inventory_id = d.inventory_id`

func (p *Postgres) Series(ctx context.Context, id string) ([]domain.Observation, error) {
	all, err := p.querySeries(ctx, seriesColumns+` WHERE d.inventory_id = $1 ORDER BY d.date`, domain.NormalizeID(id))
	if err != nil {
		return nil, err
	}
	return all[domain.NormalizeID(id)], nil
}

// AllSeries reads the whole history table in one query.
func (p *Postgres) AllSeries(ctx context.Context) (map[string][]domain.Observation, error) {
	return p.querySeries(ctx, seriesColumns+` ORDER BY d.inventory_id, d.date`)
}

func (p *Postgres) querySeries(ctx context.Context, sql string, args ...any) (map[string][]domain.Observation, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query inventory_daily")
	}
	defer rows.Close()

	out := make(map[string][]domain.Observation)
	for rows.Next() {
		var (
			id  string
			obs domain.Observation
			day time.Time
		)
		if err := rows.Scan(&id, &day,
			&obs.OpeningStock, &obs.ClosingStock,
			&obs.QuantityConsumed, &obs.QuantityRestocked,
			&obs.LeadTimeDays, &obs.MinStockLimit, &obs.MaxCapacity,
		); err != nil {
			return nil, errors.Wrap(err, "scan inventory_daily")
		}
		obs.Date = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		id = domain.NormalizeID(id)
		out[id] = append(out[id], obs)
	}
	return out, errors.Wrap(rows.Err(), "iterate inventory_daily")
}

// Details is everything the database holds about one item, keyed the way the
// get_inventory_details tool reports it.
type Details struct {
	Master            map[string]any   `json:"Inventory_Master"`
	Daily             []map[string]any `json:"Inventory_Daily"`
	Consumption       []map[string]any `json:"Consumption"`
	Finance           []map[string]any `json:"Finance"`
	DepartmentMapping []map[string]any `json:"Department_Mapping"`
	Vendor            map[string]any   `json:"Vendor"`
}

// Details looks up one item across the inventory tables. An unknown id returns
// an error wrapping domain.ErrNotFound.
func (p *Postgres) Details(ctx context.Context, id string) (*Details, error) {
	id = domain.NormalizeID(id)
	if id == "" {
		return nil, errors.New("inventory id is required")
	}

	master, err := p.one(ctx, `
		SELECT inventory_id, item_name, item_type, maximum_capacity, initial_stock,
		       unit_cost, expiry_date, lead_time_days, avg_daily_consumption,
		       minimum_required, vendor_id
		FROM inventory_master
		WHERE inventory_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "no data found for inventory id %s", id)
	}

	d := &Details{Master: master}
	if d.Daily, err = p.many(ctx, `
		SELECT date, opening_stock, closing_stock, quantity_consumed,
		       quantity_restocked, department_count
		FROM inventory_daily
		WHERE inventory_id = $1
		ORDER BY date DESC
		LIMIT 7`, id); err != nil {
		return nil, err
	}
	if d.Consumption, err = p.many(ctx, `
		SELECT date, quantity_consumed, remaining_stock, department,
		       transaction_id, batch_lot, staff_id, shift
		FROM consumption
		WHERE inventory_id = $1
		ORDER BY date DESC
		LIMIT 7`, id); err != nil {
		return nil, err
	}
	if d.Finance, err = p.many(ctx, `
		SELECT purchase_date, delivery_date, quantity, unit_cost, total_cost,
		       account_code, vendor_id, invoice_id, payment_status
		FROM finance
		WHERE inventory_id = $1
		ORDER BY purchase_date DESC
		LIMIT 5`, id); err != nil {
		return nil, err
	}
	if d.DepartmentMapping, err = p.many(ctx, `
		SELECT department_name, team_member, team_member_email, manager,
		       manager_email, min_stock_limit, max_capacity, lead_time_days, vendor_id
		FROM inventory_department_mapping
		WHERE inventory_id = $1`, id); err != nil {
		return nil, err
	}

	if vendorID, ok := master["vendor_id"].(string); ok && vendorID != "" {
		if d.Vendor, err = p.one(ctx, `
			SELECT vendor_id, vendor_name, contact_number, region, vendor_rating,
			       default_lead_time_days
			FROM vendor_master
			WHERE vendor_id = $1`, vendorID); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (p *Postgres) many(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query details")
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Wrap(err, "collect details")
	}
	return out, nil
}

// one returns the first row, or nil when there is none.
func (p *Postgres) one(ctx context.Context, sql string, args ...any) (map[string]any, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query details")
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "collect details")
	}
	return row, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
