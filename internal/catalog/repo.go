package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-vendormart.git/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateShop(ctx context.Context, ownerID, name, description string) (*Shop, error) {
	s := &Shop{ID: uuid.NewString(), OwnerID: ownerID, Name: name, Description: description}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO shops(id, owner_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		s.ID, s.OwnerID, s.Name, s.Description,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repo) ShopByID(ctx context.Context, id string) (*Shop, error) {
	var s Shop
	err := r.DB.QueryRow(ctx, `
		SELECT id, owner_id, name, description, created_at, updated_at
		FROM shops WHERE id=$1`, id,
	).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("shop not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) ListShops(ctx context.Context) ([]Shop, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, owner_id, name, description, created_at, updated_at
		FROM shops ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shop
	for rows.Next() {
		var s Shop
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateShop(ctx context.Context, s *Shop) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE shops SET name=$2, description=$3, updated_at=now()
		WHERE id=$1`, s.ID, s.Name, s.Description)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("shop not found: %s", s.ID)
	}
	return nil
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO products(id, shop_id, name, category, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.ID, p.ShopID, p.Name, p.Category, p.PriceCents, p.Stock,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) ProductByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, shop_id, name, category, price_cents, stock, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductsByIDs batch-loads products; absent ids are simply missing from the map.
func (r *Repo) ProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	out := map[string]Product{}
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	params := ""
	for i, id := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, shop_id, name, category, price_cents, stock, created_at, updated_at
		FROM products WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) SearchProducts(ctx context.Context, search, category string) ([]Product, error) {
	q := `SELECT id, shop_id, name, category, price_cents, stock, created_at, updated_at
	      FROM products WHERE 1=1`
	args := []any{}
	if search != "" {
		args = append(args, "%"+search+"%")
		q += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateProduct(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET name=$2, category=$3, price_cents=$4, stock=$5, updated_at=now()
		WHERE id=$1`, p.ID, p.Name, p.Category, p.PriceCents, p.Stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("product not found: %s", p.ID)
	}
	return nil
}
