package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/radieske/matka-exchange/internal/matka/market"
)

// Postgres implementa a persistência de categorias, mercados e apostas
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateCategory insere uma categoria; nome repetido retorna ErrDuplicate
func (p *Postgres) CreateCategory(ctx context.Context, name string) (*Category, error) {
	c := Category{Name: name}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO categories(name) VALUES($1) RETURNING id, created_at`, name).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("category %q: %w", name, ErrDuplicate)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateMarket grava o mercado e preenche id e timestamps
func (p *Postgres) CreateMarket(ctx context.Context, m *market.Market) error {
	bt, err := json.Marshal(m.BetTypes)
	if err != nil {
		return err
	}
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO markets (category_id, title, slug, open_time, close_time, bet_types, active)
		VALUES (NULLIF($1, 0), $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		m.CategoryID, m.Title, m.Slug, m.OpenTime, m.CloseTime, string(bt), m.Active,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("market slug %q: %w", m.Slug, ErrDuplicate)
	}
	return err
}

// UpdateMarket reescreve título, horários, categoria, tabela de tipos e active num único UPDATE
func (p *Postgres) UpdateMarket(ctx context.Context, m *market.Market) error {
	bt, err := json.Marshal(m.BetTypes)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE markets
		   SET category_id = NULLIF($2, 0), title = $3, slug = $4, open_time = $5, close_time = $6,
		       bet_types = $7, active = $8, updated_at = NOW()
		 WHERE id = $1 AND NOT deleted`,
		m.ID, m.CategoryID, m.Title, m.Slug, m.OpenTime, m.CloseTime, string(bt), m.Active)
	if isUniqueViolation(err) {
		return fmt.Errorf("market slug %q: %w", m.Slug, ErrDuplicate)
	}
	return affectedOne(res, err, m.ID)
}

// GetMarket lê o mercado direto do banco; excluído conta como inexistente
func (p *Postgres) GetMarket(ctx context.Context, id int64) (*market.Market, error) {
	m, err := scanMarket(p.db.QueryRowContext(ctx, `
		SELECT `+marketColumns+`
		  FROM markets m
		  LEFT JOIN categories c ON c.id = m.category_id
		 WHERE m.id = $1 AND NOT m.deleted`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("market %d: %w", id, market.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	results, err := p.latestResults(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	attachResults(m, results[id])
	return m, nil
}

// ListMarkets retorna os mercados não excluídos ordenados por id
func (p *Postgres) ListMarkets(ctx context.Context) ([]*market.Market, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+marketColumns+`
		  FROM markets m
		  LEFT JOIN categories c ON c.id = m.category_id
		 WHERE NOT m.deleted
		 ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []*market.Market
		ids []int64
	)
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	results, err := p.latestResults(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range out {
		attachResults(m, results[m.ID])
	}
	return out, nil
}

// latestResults traz os dois dias mais recentes de resultado por mercado
func (p *Postgres) latestResults(ctx context.Context, ids []int64) (map[int64][]market.DrawResult, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT market_id, draw_date::text, COALESCE(open_patti, ''), COALESCE(close_patti, '')
		  FROM (
		        SELECT r.*, ROW_NUMBER() OVER (PARTITION BY market_id ORDER BY draw_date DESC) AS rn
		          FROM market_results r
		         WHERE market_id = ANY($1)
		       ) x
		 WHERE rn <= 2
		 ORDER BY market_id, draw_date DESC`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]market.DrawResult{}
	for rows.Next() {
		var (
			id int64
			r  market.DrawResult
		)
		if err := rows.Scan(&id, &r.DrawDate, &r.OpenPatti, &r.ClosePatti); err != nil {
			return nil, err
		}
		out[id] = append(out[id], r)
	}
	return out, rows.Err()
}

func attachResults(m *market.Market, rs []market.DrawResult) {
	if len(rs) > 0 {
		today := rs[0]
		m.Today = &today
	}
	if len(rs) > 1 {
		yesterday := rs[1]
		m.Yesterday = &yesterday
	}
}

// SetSuspend grava o toggle num único UPDATE; "all" escreve as três flags
func (p *Postgres) SetSuspend(ctx context.Context, id int64, scope market.SuspendScope, on bool) error {
	var q string
	switch scope {
	case market.SuspendOpen:
		q = `UPDATE markets SET open_suspended = $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`
	case market.SuspendClose:
		q = `UPDATE markets SET close_suspended = $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`
	case market.SuspendAll:
		q = `UPDATE markets SET open_suspended = $2, close_suspended = $2, all_suspended = $2, updated_at = NOW()
		      WHERE id = $1 AND NOT deleted`
	default:
		return fmt.Errorf("invalid suspend scope %q", scope)
	}
	res, err := p.db.ExecContext(ctx, q, id, on)
	return affectedOne(res, err, id)
}

func (p *Postgres) SetMessage(ctx context.Context, id int64, text string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE markets SET message = $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id, text)
	return affectedOne(res, err, id)
}

func (p *Postgres) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE markets SET active = $2, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id, active)
	return affectedOne(res, err, id)
}

// SoftDelete marca o mercado como excluído; a linha continua no banco
func (p *Postgres) SoftDelete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE markets SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	return affectedOne(res, err, id)
}

func affectedOne(res sql.Result, err error, id int64) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("market %d: %w", id, market.ErrNotFound)
	}
	return nil
}
