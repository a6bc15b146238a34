package core_test

import (
	"testing"

	"inventory-engine/internal/core"

	"github.com/google/uuid"
)

func TestParty_CreateUpdateDelete(t *testing.T) {
	env := setupTestDB(t)

	acme, err := env.parties.CreateParty(env.ctx, core.NewParty{Name: "  Acme  ", ContactNumber: "98765 43210"})
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}
	if acme.Name != "Acme" {
		t.Errorf("expected trimmed name, got %q", acme.Name)
	}
	if acme.ContactNumber != "+919876543210" {
		t.Errorf("expected E.164 contact number, got %q", acme.ContactNumber)
	}

	_, err = env.parties.CreateParty(env.ctx, core.NewParty{Name: "Acme", ContactNumber: "1"})
	expectKind(t, err, core.ErrConflict)
	_, err = env.parties.CreateParty(env.ctx, core.NewParty{Name: "Beta", ContactNumber: "  "})
	expectKind(t, err, core.ErrInvalidArgument)

	beta := env.mustParty(t, "Beta")

	_, err = env.parties.UpdateParty(env.ctx, beta.ID, core.PartyUpdate{})
	expectKind(t, err, core.ErrInvalidArgument)
	blank := " "
	_, err = env.parties.UpdateParty(env.ctx, beta.ID, core.PartyUpdate{ContactNumber: &blank})
	expectKind(t, err, core.ErrInvalidArgument)
	taken := "Acme"
	_, err = env.parties.UpdateParty(env.ctx, beta.ID, core.PartyUpdate{Name: &taken})
	expectKind(t, err, core.ErrConflict)
	_, err = env.parties.UpdateParty(env.ctx, uuid.NewString(), core.PartyUpdate{Name: &taken})
	expectKind(t, err, core.ErrNotFound)

	// Renaming to its own name is not a conflict.
	same := "Beta"
	other := "front desk"
	updated, err := env.parties.UpdateParty(env.ctx, beta.ID, core.PartyUpdate{Name: &same, ContactNumber: &other})
	if err != nil {
		t.Fatalf("UpdateParty failed: %v", err)
	}
	if updated.ContactNumber != "front desk" {
		t.Errorf("expected contact kept as given, got %q", updated.ContactNumber)
	}

	if err := env.parties.DeleteParty(env.ctx, beta.ID); err != nil {
		t.Fatalf("DeleteParty failed: %v", err)
	}
	expectKind(t, env.parties.DeleteParty(env.ctx, beta.ID), core.ErrNotFound)

	parties, err := env.parties.ListParties(env.ctx)
	if err != nil {
		t.Fatalf("ListParties failed: %v", err)
	}
	if len(parties) != 1 || parties[0].ID != acme.ID {
		t.Errorf("expected only Acme, got %+v", parties)
	}
}

func TestParty_WithSalesOrders(t *testing.T) {
	env := setupTestDB(t)
	party := env.mustParty(t, "Gamma")
	p := env.mustProduct(t, "Rivet", 100, nil)

	first := env.mustSalesOrder(t, party.ID, item(p.ID, 1))
	second := env.mustSalesOrder(t, party.ID, item(p.ID, 2))

	expectKind(t, env.parties.DeleteParty(env.ctx, party.ID), core.ErrConflict)

	got, err := env.parties.GetParty(env.ctx, party.ID)
	if err != nil {
		t.Fatalf("GetParty failed: %v", err)
	}
	if len(got.SalesOrders) != 2 {
		t.Fatalf("expected 2 sales orders, got %d", len(got.SalesOrders))
	}
	if got.SalesOrders[0].ID != second.ID || got.SalesOrders[1].ID != first.ID {
		t.Errorf("sales orders should be newest first")
	}
	if len(got.SalesOrders[0].Items) != 1 || got.SalesOrders[0].Items[0].ProductName != "Rivet" {
		t.Errorf("expected sales order items with product names, got %+v", got.SalesOrders[0].Items)
	}

	env.mustParty(t, "Delta")
	parties, err := env.parties.ListParties(env.ctx)
	if err != nil {
		t.Fatalf("ListParties failed: %v", err)
	}
	if len(parties) != 2 || parties[0].Name != "Delta" || parties[1].Name != "Gamma" {
		t.Fatalf("expected Delta and Gamma by name, got %+v", parties)
	}
	if len(parties[0].SalesOrders) != 0 {
		t.Errorf("Delta has no orders, got %d", len(parties[0].SalesOrders))
	}
	if len(parties[1].SalesOrders) != 2 || parties[1].SalesOrders[0].ID != second.ID || len(parties[1].SalesOrders[1].Items) != 1 {
		t.Errorf("expected Gamma's orders with items, newest first, got %+v", parties[1].SalesOrders)
	}
}
