package core_test

import (
	"testing"

	"inventory-engine/internal/core"

	"github.com/google/uuid"
)

func TestCatalog_ProductLifecycle(t *testing.T) {
	env := setupTestDB(t)
	cat := env.mustCategory(t, "Fasteners")

	p := env.mustProduct(t, "Bolt M8", 10, &cat.ID)
	if p.CategoryID == nil || *p.CategoryID != cat.ID {
		t.Errorf("expected category %s, got %v", cat.ID, p.CategoryID)
	}

	// Identical (name, quantity) is a duplicate; the same name with another quantity is not.
	_, err := env.catalog.CreateProduct(env.ctx, core.NewProduct{Name: "Bolt M8", Quantity: 10})
	expectKind(t, err, core.ErrConflict)
	env.mustProduct(t, "Bolt M8", 11, nil)

	_, err = env.catalog.CreateProduct(env.ctx, core.NewProduct{Name: "  ", Quantity: 1})
	expectKind(t, err, core.ErrInvalidArgument)
	_, err = env.catalog.CreateProduct(env.ctx, core.NewProduct{Name: "Nut", Quantity: -1})
	expectKind(t, err, core.ErrInvalidArgument)
	unknown := uuid.NewString()
	_, err = env.catalog.CreateProduct(env.ctx, core.NewProduct{Name: "Nut", Quantity: 1, CategoryID: &unknown})
	expectKind(t, err, core.ErrNotFound)

	// Updates
	_, err = env.catalog.UpdateProduct(env.ctx, p.ID, core.ProductUpdate{})
	expectKind(t, err, core.ErrInvalidArgument)
	empty := ""
	_, err = env.catalog.UpdateProduct(env.ctx, p.ID, core.ProductUpdate{Name: &empty})
	expectKind(t, err, core.ErrInvalidArgument)
	negative := -3
	_, err = env.catalog.UpdateProduct(env.ctx, p.ID, core.ProductUpdate{Quantity: &negative})
	expectKind(t, err, core.ErrInvalidArgument)
	_, err = env.catalog.UpdateProduct(env.ctx, uuid.NewString(), core.ProductUpdate{Name: &p.Name})
	expectKind(t, err, core.ErrNotFound)

	newQty := 25
	updated, err := env.catalog.UpdateProduct(env.ctx, p.ID, core.ProductUpdate{Quantity: &newQty})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	if updated.Quantity != 25 || updated.Name != "Bolt M8" {
		t.Errorf("expected Bolt M8 x25, got %s x%d", updated.Name, updated.Quantity)
	}

	products, err := env.catalog.ListProducts(env.ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Errorf("expected 2 products, got %d", len(products))
	}

	if err := env.catalog.DeleteProduct(env.ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	_, err = env.catalog.GetProduct(env.ctx, p.ID)
	expectKind(t, err, core.ErrNotFound)
	expectKind(t, env.catalog.DeleteProduct(env.ctx, p.ID), core.ErrNotFound)
}

func TestCatalog_DeleteReferencedProduct(t *testing.T) {
	env := setupTestDB(t)
	p := env.mustProduct(t, "Washer", 4, nil)
	party := env.mustParty(t, "Acme")
	env.mustSalesOrder(t, party.ID, item(p.ID, 1))

	expectKind(t, env.catalog.DeleteProduct(env.ctx, p.ID), core.ErrConflict)
	if env.quantity(t, p.ID) != 4 {
		t.Error("refused delete must leave the product untouched")
	}
}

func TestCatalog_CategoryMembership(t *testing.T) {
	env := setupTestDB(t)
	cat := env.mustCategory(t, "Tools")
	other := env.mustCategory(t, "Spares")
	p := env.mustProduct(t, "Hammer", 2, nil)

	_, err := env.catalog.CreateCategory(env.ctx, "Tools")
	expectKind(t, err, core.ErrConflict)
	_, err = env.catalog.CreateCategory(env.ctx, " ")
	expectKind(t, err, core.ErrInvalidArgument)

	// Adding twice is idempotent.
	for i := 0; i < 2; i++ {
		if err := env.catalog.AddProductToCategory(env.ctx, cat.ID, p.ID); err != nil {
			t.Fatalf("AddProductToCategory #%d failed: %v", i+1, err)
		}
	}
	got, err := env.catalog.GetCategory(env.ctx, cat.ID)
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if len(got.ProductIDs) != 1 || got.ProductIDs[0] != p.ID {
		t.Errorf("expected product ids [%s], got %v", p.ID, got.ProductIDs)
	}

	expectKind(t, env.catalog.AddProductToCategory(env.ctx, uuid.NewString(), p.ID), core.ErrNotFound)
	expectKind(t, env.catalog.AddProductToCategory(env.ctx, cat.ID, uuid.NewString()), core.ErrNotFound)
	expectKind(t, env.catalog.RemoveProductFromCategory(env.ctx, uuid.NewString(), p.ID), core.ErrNotFound)

	// Removing from a category the product is not in changes nothing.
	if err := env.catalog.RemoveProductFromCategory(env.ctx, other.ID, p.ID); err != nil {
		t.Fatalf("RemoveProductFromCategory(other) failed: %v", err)
	}
	if prod, _ := env.catalog.GetProduct(env.ctx, p.ID); prod.CategoryID == nil || *prod.CategoryID != cat.ID {
		t.Errorf("product should still be in %s", cat.ID)
	}

	for i := 0; i < 2; i++ {
		if err := env.catalog.RemoveProductFromCategory(env.ctx, cat.ID, p.ID); err != nil {
			t.Fatalf("RemoveProductFromCategory #%d failed: %v", i+1, err)
		}
	}
	if prod, _ := env.catalog.GetProduct(env.ctx, p.ID); prod.CategoryID != nil {
		t.Errorf("expected no category, got %s", *prod.CategoryID)
	}

	categories, err := env.catalog.ListCategories(env.ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	for _, c := range categories {
		if c.ProductIDs == nil || len(c.ProductIDs) != 0 {
			t.Errorf("category %s: expected empty product ids, got %v", c.Name, c.ProductIDs)
		}
	}
}

func TestCatalog_DeleteCategoryUncategorizesProducts(t *testing.T) {
	env := setupTestDB(t)
	cat := env.mustCategory(t, "Paint")
	p := env.mustProduct(t, "Primer", 0, &cat.ID)
	party := env.mustParty(t, "Painters Ltd")
	env.mustSalesOrder(t, party.ID, item(p.ID, 3))

	if n := env.count(t, "pendency"); n != 1 {
		t.Fatalf("expected 1 pendency row before delete, got %d", n)
	}

	if err := env.catalog.DeleteCategory(env.ctx, cat.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	prod, err := env.catalog.GetProduct(env.ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if prod.CategoryID != nil {
		t.Errorf("expected product to lose its category")
	}
	if n := env.count(t, "pendency"); n != 0 {
		t.Errorf("uncategorized products have no pendency, got %d rows", n)
	}
	expectKind(t, env.catalog.DeleteCategory(env.ctx, cat.ID), core.ErrNotFound)
}
