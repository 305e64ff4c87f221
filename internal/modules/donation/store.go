// README: Donation store backed by PostgreSQL; conditional writes guard every transition.
package donation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealbridge/internal/modules/realtime"
	"mealbridge/internal/types"
)

type PGStore struct {
	db  *pgxpool.Pool
	bus realtime.Notifier
}

func NewPGStore(db *pgxpool.Pool, bus realtime.Notifier) *PGStore {
	return &PGStore{db: db, bus: bus}
}

func (s *PGStore) Create(ctx context.Context, d *Donation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO donations (
			id, donor_id, donor_name, food_type, quantity, unit,
			pickup_address, pickup_city, pickup_lat, pickup_lng,
			expiry_date, handling_notes, status, status_version,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16
		)`,
		string(d.ID),
		string(d.DonorID),
		d.DonorName,
		d.FoodType,
		d.Quantity,
		d.Unit,
		d.PickupAddress,
		d.PickupCity,
		d.PickupLat, d.PickupLng,
		d.ExpiryDate,
		d.HandlingNotes,
		string(d.Status),
		d.StatusVersion,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.bus.Notify(ctx, realtime.TopicDonations)
	return nil
}

const donationColumns = `
	id, donor_id, donor_name, recipient_id, recipient_name, volunteer_id,
	food_type, quantity, unit,
	pickup_address, pickup_city, pickup_lat, pickup_lng,
	delivery_address, delivery_contact,
	expiry_date, handling_notes, status, status_version,
	created_at, updated_at, accepted_at, pickup_at, delivered_at`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Donation, error) {
	row := s.db.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, string(id))
	d, err := scanDonation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateStatus performs the indivisible check-and-write: the UPDATE is
// guarded on both the expected status and the status version, and per-status
// timestamps are stamped in the same statement. Returns false when a
// competing write won.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, patch Patch) (bool, error) {
	var assigneeID, assigneeName *string
	if patch.Assignee != nil {
		v := string(patch.Assignee.ID)
		assigneeID = &v
		assigneeName = &patch.Assignee.Name
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE donations
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW(),
		    recipient_id = CASE WHEN $1 = 'accepted' THEN $2 ELSE recipient_id END,
		    recipient_name = CASE WHEN $1 = 'accepted' THEN $3 ELSE recipient_name END,
		    delivery_address = COALESCE($4, delivery_address),
		    delivery_contact = COALESCE($5, delivery_contact),
		    volunteer_id = CASE WHEN $1 = 'in_transit' THEN $2 ELSE volunteer_id END,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    pickup_at = CASE WHEN $1 = 'in_transit' THEN NOW() ELSE pickup_at END,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN COALESCE($6, NOW()) ELSE delivered_at END
		WHERE id = $7 AND status = $8 AND status_version = $9`,
		string(to),
		assigneeID,
		assigneeName,
		patch.DeliveryAddress,
		patch.DeliveryContact,
		patch.DeliveredAt,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	s.bus.Notify(ctx, realtime.TopicDonations)
	return true, nil
}

func (s *PGStore) ListByStatus(ctx context.Context, status Status, foodType string) ([]Donation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+donationColumns+`
		FROM donations
		WHERE status = $1 AND ($2 = '' OR food_type = $2)
		ORDER BY created_at`,
		string(status), foodType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDonations(rows)
}

func (s *PGStore) ListByDonor(ctx context.Context, donorID types.ID) ([]Donation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+donationColumns+`
		FROM donations
		WHERE donor_id = $1
		ORDER BY created_at DESC`,
		string(donorID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDonations(rows)
}

func collectDonations(rows pgx.Rows) ([]Donation, error) {
	var out []Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDonation(row pgx.Row) (*Donation, error) {
	var d Donation
	var recipientID, recipientName, volunteerID sql.NullString
	var deliveryAddress, deliveryContact sql.NullString
	var acceptedAt, pickupAt, deliveredAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.DonorID, &d.DonorName, &recipientID, &recipientName, &volunteerID,
		&d.FoodType, &d.Quantity, &d.Unit,
		&d.PickupAddress, &d.PickupCity, &d.PickupLat, &d.PickupLng,
		&deliveryAddress, &deliveryContact,
		&d.ExpiryDate, &d.HandlingNotes, &d.Status, &d.StatusVersion,
		&d.CreatedAt, &d.UpdatedAt, &acceptedAt, &pickupAt, &deliveredAt,
	)
	if err != nil {
		return nil, err
	}

	if recipientID.Valid {
		v := types.ID(recipientID.String)
		d.RecipientID = &v
	}
	if recipientName.Valid {
		d.RecipientName = &recipientName.String
	}
	if volunteerID.Valid {
		v := types.ID(volunteerID.String)
		d.VolunteerID = &v
	}
	if deliveryAddress.Valid {
		d.DeliveryAddress = &deliveryAddress.String
	}
	if deliveryContact.Valid {
		d.DeliveryContact = &deliveryContact.String
	}
	d.AcceptedAt = toTimePtr(acceptedAt)
	d.PickupAt = toTimePtr(pickupAt)
	d.DeliveredAt = toTimePtr(deliveredAt)
	return &d, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
