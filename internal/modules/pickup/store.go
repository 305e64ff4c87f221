// README: Pickup store backed by PostgreSQL; one conditional UPDATE per transition.
package pickup

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mealbridge/internal/modules/location"
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

func (s *PGStore) Create(ctx context.Context, p *Pickup) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pickups (
			id, donation_id, donor_id, recipient_id, volunteer_id,
			status, status_version, food_type, quantity, unit,
			pickup_address, pickup_contact, handling_notes,
			dropoff_address, dropoff_contact, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16,
			$17, $18
		)`,
		string(p.ID),
		string(p.DonationID),
		string(p.DonorID),
		string(p.RecipientID),
		string(p.VolunteerID),
		string(p.Status),
		p.StatusVersion,
		p.FoodType,
		p.Quantity,
		p.Unit,
		p.PickupAddress,
		p.PickupContact,
		p.HandlingNotes,
		p.DropoffAddress,
		p.DropoffContact,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.bus.Notify(ctx, realtime.TopicPickups)
	return nil
}

const pickupColumns = `
	id, donation_id, donor_id, recipient_id, volunteer_id,
	status, status_version, food_type, quantity, unit,
	pickup_address, pickup_contact, handling_notes,
	dropoff_address, dropoff_contact, notes,
	current_lat, current_lng, last_location_at,
	created_at, updated_at,
	started_pickup_at, at_pickup_at, picked_up_at,
	in_transit_at, at_delivery_at, delivered_at, cancelled_at`

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Pickup, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pickupColumns+` FROM pickups WHERE id = $1`, string(id))
	return scanPickupOr(row, ErrNotFound)
}

func (s *PGStore) GetByDonation(ctx context.Context, donationID types.ID) (*Pickup, error) {
	row := s.db.QueryRow(ctx, `SELECT `+pickupColumns+` FROM pickups WHERE donation_id = $1`, string(donationID))
	return scanPickupOr(row, ErrNotFound)
}

// UpdateStatus is the indivisible check-and-write for a transition: the
// status and version guard, the per-step timestamp and the optional location
// enrichment all land in one statement. Returns false when a competing
// write won the race.
func (s *PGStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, fix *location.Fix) (bool, error) {
	var lat, lng *float64
	var at *time.Time
	if fix != nil {
		lat, lng = &fix.Point.Lat, &fix.Point.Lng
		at = &fix.CapturedAt
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE pickups
		SET status = $1,
		    status_version = status_version + 1,
		    updated_at = NOW(),
		    current_lat = COALESCE($2, current_lat),
		    current_lng = COALESCE($3, current_lng),
		    last_location_at = COALESCE($4, last_location_at),
		    started_pickup_at = CASE WHEN $1 = 'started_for_pickup' THEN NOW() ELSE started_pickup_at END,
		    at_pickup_at = CASE WHEN $1 = 'at_pickup_location' THEN NOW() ELSE at_pickup_at END,
		    picked_up_at = CASE WHEN $1 = 'pickup_complete' THEN NOW() ELSE picked_up_at END,
		    in_transit_at = CASE WHEN $1 = 'in_transit' THEN NOW() ELSE in_transit_at END,
		    at_delivery_at = CASE WHEN $1 = 'at_delivery_location' THEN NOW() ELSE at_delivery_at END,
		    delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $5 AND status = $6 AND status_version = $7`,
		string(to),
		lat, lng, at,
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
	s.bus.Notify(ctx, realtime.TopicPickups)
	return true, nil
}

func (s *PGStore) ListByVolunteer(ctx context.Context, volunteerID types.ID) ([]Pickup, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+pickupColumns+`
		FROM pickups
		WHERE volunteer_id = $1
		ORDER BY created_at`,
		string(volunteerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pickup
	for rows.Next() {
		p, err := scanPickupOr(rows, pgx.ErrNoRows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// AppendEvent relies on the column defaults for id and recorded_at: the
// serial and the server clock are what give the history its commit order.
func (s *PGStore) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pickup_status_events (
			pickup_id, from_status, to_status, actor_id, lat, lng
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.PickupID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorID),
		e.Lat,
		e.Lng,
	)
	return err
}

func (s *PGStore) EventsByPickup(ctx context.Context, pickupID types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, pickup_id, from_status, to_status, actor_id, lat, lng, recorded_at
		FROM pickup_status_events
		WHERE pickup_id = $1
		ORDER BY id`,
		string(pickupID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.PickupID, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.Lat, &e.Lng, &e.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanPickupOr(row pgx.Row, notFound error) (*Pickup, error) {
	var p Pickup
	var lastLocationAt sql.NullTime
	var startedPickupAt, atPickupAt, pickedUpAt sql.NullTime
	var inTransitAt, atDeliveryAt, deliveredAt, cancelledAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.DonationID, &p.DonorID, &p.RecipientID, &p.VolunteerID,
		&p.Status, &p.StatusVersion, &p.FoodType, &p.Quantity, &p.Unit,
		&p.PickupAddress, &p.PickupContact, &p.HandlingNotes,
		&p.DropoffAddress, &p.DropoffContact, &p.Notes,
		&p.CurrentLat, &p.CurrentLng, &lastLocationAt,
		&p.CreatedAt, &p.UpdatedAt,
		&startedPickupAt, &atPickupAt, &pickedUpAt,
		&inTransitAt, &atDeliveryAt, &deliveredAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}

	p.LastLocationAt = toTimePtr(lastLocationAt)
	p.StartedPickupAt = toTimePtr(startedPickupAt)
	p.AtPickupAt = toTimePtr(atPickupAt)
	p.PickedUpAt = toTimePtr(pickedUpAt)
	p.InTransitAt = toTimePtr(inTransitAt)
	p.AtDeliveryAt = toTimePtr(atDeliveryAt)
	p.DeliveredAt = toTimePtr(deliveredAt)
	p.CancelledAt = toTimePtr(cancelledAt)
	return &p, nil
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
