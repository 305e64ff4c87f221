// README: Donation service implements listing, acceptance and delivery linkage.
package donation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mealbridge/internal/types"
)

var (
	ErrNotFound   = errors.New("donation not found")
	ErrConflict   = errors.New("donation state conflict")
	ErrBadRequest = errors.New("bad request")
)

// Store is the persistence collaborator. UpdateStatus must be a single
// atomic conditional write keyed on (status, status_version); a read
// followed by an unconditional write is not an acceptable implementation.
type Store interface {
	Create(ctx context.Context, d *Donation) error
	Get(ctx context.Context, id types.ID) (*Donation, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, patch Patch) (bool, error)
	ListByStatus(ctx context.Context, status Status, foodType string) ([]Donation, error)
	ListByDonor(ctx context.Context, donorID types.ID) ([]Donation, error)
}

// Patch carries the fields a status transition binds to the record. The
// store stamps the per-status timestamp itself.
type Patch struct {
	Assignee        *Assignee
	DeliveryAddress *string
	DeliveryContact *string
	// DeliveredAt, when set, overrides the store clock so the donation and
	// its pickup carry an identical delivery stamp.
	DeliveredAt *time.Time
}

// Geocoder resolves a street address to coordinates. Optional.
type Geocoder interface {
	Locate(ctx context.Context, address string) (types.Point, error)
}

// Advisor produces food handling notes for volunteers. Optional.
type Advisor interface {
	HandlingNotes(ctx context.Context, foodType string, quantity float64, unit string, expiry time.Time) (string, error)
}

type Service struct {
	store    Store
	geocoder Geocoder
	advisor  Advisor
	log      zerolog.Logger
}

func NewService(store Store, geocoder Geocoder, advisor Advisor, log zerolog.Logger) *Service {
	return &Service{store: store, geocoder: geocoder, advisor: advisor, log: log}
}

type CreateCommand struct {
	DonorID       types.ID
	DonorName     string
	FoodType      string
	Quantity      float64
	Unit          string
	PickupAddress string
	PickupCity    string
	ExpiryDate    time.Time
}

type AcceptCommand struct {
	DonationID      types.ID
	RecipientID     types.ID
	RecipientName   string
	DeliveryAddress string
	DeliveryContact string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.DonorID == "" || cmd.FoodType == "" || cmd.Unit == "" || cmd.PickupAddress == "" {
		return "", ErrBadRequest
	}
	if cmd.Quantity <= 0 {
		return "", ErrBadRequest
	}
	if cmd.ExpiryDate.IsZero() || !cmd.ExpiryDate.After(time.Now()) {
		return "", ErrBadRequest
	}

	now := time.Now()
	d := &Donation{
		ID:            types.ID(uuid.NewString()),
		DonorID:       cmd.DonorID,
		DonorName:     cmd.DonorName,
		FoodType:      cmd.FoodType,
		Quantity:      cmd.Quantity,
		Unit:          cmd.Unit,
		PickupAddress: cmd.PickupAddress,
		PickupCity:    cmd.PickupCity,
		ExpiryDate:    cmd.ExpiryDate,
		Status:        StatusAvailable,
		StatusVersion: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Enrichment below is best-effort: a geocoder or advisor failure never
	// blocks the listing.
	if s.geocoder != nil {
		if p, err := s.geocoder.Locate(ctx, cmd.PickupAddress+", "+cmd.PickupCity); err == nil {
			d.PickupLat, d.PickupLng = &p.Lat, &p.Lng
		} else {
			s.log.Debug().Err(err).Str("donation_id", string(d.ID)).Msg("geocode failed")
		}
	}
	if s.advisor != nil {
		if notes, err := s.advisor.HandlingNotes(ctx, cmd.FoodType, cmd.Quantity, cmd.Unit, cmd.ExpiryDate); err == nil {
			d.HandlingNotes = notes
		} else {
			s.log.Debug().Err(err).Str("donation_id", string(d.ID)).Msg("handling notes failed")
		}
	}

	if err := s.store.Create(ctx, d); err != nil {
		return "", err
	}
	return d.ID, nil
}

// Accept is the recipient-side compare-and-set race: of any number of
// concurrent accepts on the same available donation exactly one wins, the
// rest get ErrConflict. Re-accepting an already-accepted donation is also
// ErrConflict.
func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	if cmd.RecipientID == "" || cmd.DeliveryAddress == "" {
		return ErrBadRequest
	}
	d, err := s.store.Get(ctx, cmd.DonationID)
	if err != nil {
		return err
	}
	if !CanTransition(d.Status, StatusAccepted) {
		return ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, d.ID, d.Status, StatusAccepted, d.StatusVersion, Patch{
		Assignee:        &Assignee{ID: cmd.RecipientID, Name: cmd.RecipientName},
		DeliveryAddress: &cmd.DeliveryAddress,
		DeliveryContact: &cmd.DeliveryContact,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// ClaimForDelivery moves an accepted donation to in_transit and binds the
// volunteer. Called by the pickup module when a delivery is claimed; the CAS
// here is what makes a second claim fail cleanly instead of duplicating the
// pickup.
func (s *Service) ClaimForDelivery(ctx context.Context, donationID types.ID, volunteer Assignee) (*Donation, error) {
	if volunteer.ID == "" {
		return nil, ErrBadRequest
	}
	d, err := s.store.Get(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(d.Status, StatusInTransit) {
		return nil, ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, d.ID, d.Status, StatusInTransit, d.StatusVersion, Patch{
		Assignee: &volunteer,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	return s.store.Get(ctx, d.ID)
}

// CompleteDelivery closes the donation once its pickup reached delivered.
// Idempotent: completing an already-delivered donation is a no-op, so the
// pickup-side saga can be retried safely.
func (s *Service) CompleteDelivery(ctx context.Context, donationID types.ID, deliveredAt time.Time) error {
	d, err := s.store.Get(ctx, donationID)
	if err != nil {
		return err
	}
	if d.Status == StatusDelivered {
		return nil
	}
	if !CanTransition(d.Status, StatusDelivered) {
		return ErrConflict
	}
	ok, err := s.store.UpdateStatus(ctx, d.ID, d.Status, StatusDelivered, d.StatusVersion, Patch{
		DeliveredAt: &deliveredAt,
	})
	if err != nil {
		return err
	}
	if !ok {
		cur, err := s.store.Get(ctx, d.ID)
		if err == nil && cur.Status == StatusDelivered {
			return nil
		}
		return ErrConflict
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Donation, error) {
	return s.store.Get(ctx, id)
}

// ListAvailable returns open listings, optionally narrowed to a food type.
func (s *Service) ListAvailable(ctx context.Context, foodType string) ([]Donation, error) {
	return s.store.ListByStatus(ctx, StatusAvailable, foodType)
}

// ListAccepted feeds the volunteers' "available deliveries" view.
func (s *Service) ListAccepted(ctx context.Context) ([]Donation, error) {
	return s.store.ListByStatus(ctx, StatusAccepted, "")
}

// ListInTransit feeds the delivery reconciler's sweep.
func (s *Service) ListInTransit(ctx context.Context) ([]Donation, error) {
	return s.store.ListByStatus(ctx, StatusInTransit, "")
}

func (s *Service) ListByDonor(ctx context.Context, donorID types.ID) ([]Donation, error) {
	return s.store.ListByDonor(ctx, donorID)
}
