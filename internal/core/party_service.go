package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ttacon/libphonenumber"
)

// PartyService manages the clients that place sales orders.
type PartyService interface {
	CreateParty(ctx context.Context, in NewParty) (*Party, error)
	UpdateParty(ctx context.Context, id string, upd PartyUpdate) (*Party, error)
	// DeleteParty removes a party that owns no sales orders.
	DeleteParty(ctx context.Context, id string) error
	// GetParty returns the party with its sales orders, newest first.
	GetParty(ctx context.Context, id string) (*Party, error)
	// ListParties embeds each party's sales orders the same way.
	ListParties(ctx context.Context) ([]Party, error)
}

type partyService struct {
	pool   *pgxpool.Pool
	region string
}

// NewPartyService returns a PartyService. region is the ISO 3166 code used to interpret
// contact numbers written without a country prefix.
func NewPartyService(pool *pgxpool.Pool, region string) PartyService {
	return &partyService{pool: pool, region: strings.ToUpper(strings.TrimSpace(region))}
}

// normalizeContact returns raw in E.164 form when it is a valid number for region, and the
// trimmed input otherwise.
func normalizeContact(raw, region string) string {
	raw = strings.TrimSpace(raw)
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func (s *partyService) CreateParty(ctx context.Context, in NewParty) (*Party, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p := Party{
		ID:            uuid.NewString(),
		Name:          in.Name,
		ContactNumber: normalizeContact(in.ContactNumber, s.region),
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO parties (id, name, contact_number)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.ContactNumber).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflict("party %q already exists", in.Name)
		}
		return nil, fmt.Errorf("failed to insert party: %w", err)
	}
	return &p, nil
}

func (s *partyService) UpdateParty(ctx context.Context, id string, upd PartyUpdate) (*Party, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}
	if upd.Name == nil && upd.ContactNumber == nil {
		return nil, invalidArgument("at least one of name, contact_number is required")
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalidArgument("name must not be empty")
		}
		upd.Name = &name
	}
	if upd.ContactNumber != nil {
		if strings.TrimSpace(*upd.ContactNumber) == "" {
			return nil, invalidArgument("contact_number must not be empty")
		}
		contact := normalizeContact(*upd.ContactNumber, s.region)
		upd.ContactNumber = &contact
	}

	var p Party
	err := s.pool.QueryRow(ctx, `
		UPDATE parties
		SET name = COALESCE($2, name), contact_number = COALESCE($3, contact_number), updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, contact_number, created_at, updated_at
	`, id, upd.Name, upd.ContactNumber).Scan(&p.ID, &p.Name, &p.ContactNumber, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("party %s not found", id)
		}
		if isUniqueViolation(err) && upd.Name != nil {
			return nil, conflict("party %q already exists", *upd.Name)
		}
		return nil, fmt.Errorf("failed to update party: %w", err)
	}
	return &p, nil
}

func (s *partyService) DeleteParty(ctx context.Context, id string) error {
	if err := validateID("id", id); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM parties WHERE id = $1", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return conflict("party %s still has sales orders", id)
		}
		return fmt.Errorf("failed to delete party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("party %s not found", id)
	}
	return nil
}

func (s *partyService) GetParty(ctx context.Context, id string) (*Party, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	p, err := getPartyTx(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	orders, err := querySalesOrders(ctx, s.pool, "so.party_id = $1", id)
	if err != nil {
		return nil, err
	}
	p.SalesOrders = orders
	return p, nil
}

// ListParties returns every party with its sales orders, newest first.
func (s *partyService) ListParties(ctx context.Context) ([]Party, error) {
	parties, err := queryParties(ctx, s.pool, "TRUE")
	if err != nil || len(parties) == 0 {
		return parties, err
	}
	orders, err := querySalesOrders(ctx, s.pool, "TRUE")
	if err != nil {
		return nil, err
	}
	byParty := make(map[string][]SalesOrder, len(parties))
	for _, so := range orders {
		byParty[so.PartyID] = append(byParty[so.PartyID], so)
	}
	for i := range parties {
		parties[i].SalesOrders = byParty[parties[i].ID]
	}
	return parties, nil
}

// queryParties loads the parties matching where, ordered by name, without their orders.
func queryParties(ctx context.Context, q dbtx, where string, args ...any) ([]Party, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, contact_number, created_at, updated_at
		FROM parties
		WHERE `+where+`
		ORDER BY name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parties: %w", err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.Name, &p.ContactNumber, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parties: %w", err)
	}
	return parties, nil
}

func getPartyTx(ctx context.Context, q dbtx, id string) (*Party, error) {
	var p Party
	err := q.QueryRow(ctx, `
		SELECT id, name, contact_number, created_at, updated_at
		FROM parties
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.ContactNumber, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("party %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch party: %w", err)
	}
	return &p, nil
}
