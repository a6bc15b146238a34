package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService manages products, categories and the product-category association.
// Operations that change stock or category membership trigger a pendency recalculation after
// they commit.
type CatalogService interface {
	CreateProduct(ctx context.Context, in NewProduct) (*Product, error)
	// UpdateProduct applies the non-nil fields of upd. A quantity change is a direct stock
	// correction.
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (*Product, error)
	// DeleteProduct removes a product that no order references.
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	CreateCategory(ctx context.Context, name string) (*Category, error)
	// DeleteCategory removes a category; its products become uncategorized.
	DeleteCategory(ctx context.Context, id string) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)

	// AddProductToCategory and RemoveProductFromCategory are idempotent.
	AddProductToCategory(ctx context.Context, categoryID, productID string) error
	RemoveProductFromCategory(ctx context.Context, categoryID, productID string) error
}

type catalogService struct {
	pool       *pgxpool.Pool
	reconciler Reconciler
}

func NewCatalogService(pool *pgxpool.Pool, reconciler Reconciler) CatalogService {
	return &catalogService{pool: pool, reconciler: reconciler}
}

// ── Products ──────────────────────────────────────────────────────────────────

func (s *catalogService) CreateProduct(ctx context.Context, in NewProduct) (*Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if err := validateID("category_id", *in.CategoryID); err != nil {
			return nil, err
		}
	}

	p := Product{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Quantity:   in.Quantity,
		CategoryID: in.CategoryID,
	}
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		// Serializes creations of the same name so the duplicate check below cannot race.
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", in.Name); err != nil {
			return fmt.Errorf("failed to lock product name: %w", err)
		}

		if in.CategoryID != nil {
			if err := lockCategoryTx(ctx, tx, *in.CategoryID); err != nil {
				return err
			}
		}

		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM products WHERE name = $1 AND quantity = $2)",
			in.Name, in.Quantity,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check for duplicate product: %w", err)
		}
		if exists {
			return conflict("product %q with quantity %d already exists", in.Name, in.Quantity)
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO products (id, name, quantity, category_id)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`, p.ID, p.Name, p.Quantity, p.CategoryID).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return notFound("category %s not found", *in.CategoryID)
			}
			return fmt.Errorf("failed to insert product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if upd.Name == nil && upd.Quantity == nil {
		return nil, invalidArgument("at least one of name, quantity is required")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidArgument("name must not be empty")
		}
		upd.Name = &name
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return nil, invalidArgument("quantity must be at least 0, got %d", *upd.Quantity)
	}
	if upd.Quantity != nil && *upd.Quantity > maxQuantity {
		return nil, invalidArgument("quantity must be at most %d, got %d", maxQuantity, *upd.Quantity)
	}

	var p Product
	var stockChanged bool
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		var oldQty int
		if err := tx.QueryRow(ctx, "SELECT quantity FROM products WHERE id = $1 FOR UPDATE", id).Scan(&oldQty); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound("product %s not found", id)
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		err := tx.QueryRow(ctx, `
			UPDATE products
			SET name = COALESCE($2, name), quantity = COALESCE($3, quantity), updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, quantity, category_id, created_at, updated_at
		`, id, upd.Name, upd.Quantity).Scan(&p.ID, &p.Name, &p.Quantity, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		stockChanged = p.Quantity != oldQty
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stockChanged {
		reconcileAfterCommit(ctx, s.reconciler)
	}
	return &p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := validateID("id", id); err != nil {
		return err
	}

	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return conflict("product %s is referenced by existing orders", id)
			}
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return notFound("product %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*Product, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var p Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, quantity, category_id, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Quantity, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, quantity, category_id, created_at, updated_at
		FROM products
		ORDER BY name, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// ── Categories ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument("name is required")
	}

	c := Category{ID: uuid.NewString(), Name: name, ProductIDs: []string{}}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at",
		c.ID, c.Name,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("category %q already exists", name)
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}
	return &c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := validateID("id", id); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("category %s not found", id)
	}

	reconcileAfterCommit(ctx, s.reconciler)
	return nil
}

func (s *catalogService) GetCategory(ctx context.Context, id string) (*Category, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var c Category
	err := s.pool.QueryRow(ctx, "SELECT id, name, created_at FROM categories WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("category %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}

	members, err := s.categoryMembers(ctx, &id)
	if err != nil {
		return nil, err
	}
	c.ProductIDs = members[id]
	if c.ProductIDs == nil {
		c.ProductIDs = []string{}
	}
	return &c, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	members, err := s.categoryMembers(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].ProductIDs = members[categories[i].ID]
		if categories[i].ProductIDs == nil {
			categories[i].ProductIDs = []string{}
		}
	}
	return categories, nil
}

// categoryMembers maps category id to member product ids, for one category or all of them.
func (s *catalogService) categoryMembers(ctx context.Context, categoryID *string) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category_id, id
		FROM products
		WHERE category_id IS NOT NULL AND ($1::uuid IS NULL OR category_id = $1::uuid)
		ORDER BY created_at, id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var cid, pid string
		if err := rows.Scan(&cid, &pid); err != nil {
			return nil, fmt.Errorf("failed to scan category member: %w", err)
		}
		members[cid] = append(members[cid], pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category members: %w", err)
	}
	return members, nil
}

// ── Membership ────────────────────────────────────────────────────────────────

func (s *catalogService) AddProductToCategory(ctx context.Context, categoryID, productID string) error {
	if err := validateID("category_id", categoryID); err != nil {
		return err
	}
	if err := validateID("product_id", productID); err != nil {
		return err
	}

	var changed bool
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		if err := lockCategoryTx(ctx, tx, categoryID); err != nil {
			return err
		}
		current, err := lockProductCategoryTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		if current != nil && *current == categoryID {
			return nil
		}
		if _, err := tx.Exec(ctx,
			"UPDATE products SET category_id = $1, updated_at = NOW() WHERE id = $2",
			categoryID, productID,
		); err != nil {
			return fmt.Errorf("failed to assign product to category: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		reconcileAfterCommit(ctx, s.reconciler)
	}
	return nil
}

func (s *catalogService) RemoveProductFromCategory(ctx context.Context, categoryID, productID string) error {
	if err := validateID("category_id", categoryID); err != nil {
		return err
	}
	if err := validateID("product_id", productID); err != nil {
		return err
	}

	var changed bool
	err := inTx(ctx, s.pool, readCommitted, func(tx pgx.Tx) error {
		if err := lockCategoryTx(ctx, tx, categoryID); err != nil {
			return err
		}
		current, err := lockProductCategoryTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		// A product in another category, or in none, is already "not in" this one.
		if current == nil || *current != categoryID {
			return nil
		}
		if _, err := tx.Exec(ctx,
			"UPDATE products SET category_id = NULL, updated_at = NOW() WHERE id = $1",
			productID,
		); err != nil {
			return fmt.Errorf("failed to remove product from category: %w", err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		reconcileAfterCommit(ctx, s.reconciler)
	}
	return nil
}

// lockCategoryTx takes a share lock on a category so it cannot be deleted before the caller's
// transaction commits.
func lockCategoryTx(ctx context.Context, tx pgx.Tx, id string) error {
	var found string
	if err := tx.QueryRow(ctx, "SELECT id FROM categories WHERE id = $1 FOR SHARE", id).Scan(&found); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound("category %s not found", id)
		}
		return fmt.Errorf("failed to lock category: %w", err)
	}
	return nil
}

func lockProductCategoryTx(ctx context.Context, tx pgx.Tx, id string) (*string, error) {
	var categoryID *string
	if err := tx.QueryRow(ctx, "SELECT category_id FROM products WHERE id = $1 FOR UPDATE", id).Scan(&categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return categoryID, nil
}
