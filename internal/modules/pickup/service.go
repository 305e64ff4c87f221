// README: Pickup service; the authority for claim and every status advance.
package pickup

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mealbridge/internal/modules/donation"
	"mealbridge/internal/modules/location"
	"mealbridge/internal/types"
)

var (
	ErrNotFound          = errors.New("pickup not found")
	ErrUnauthorized      = errors.New("actor is not the assigned volunteer")
	ErrInvalidTransition = errors.New("requested status is not the legal successor")
	ErrConflict          = errors.New("pickup state conflict")
	ErrBadRequest        = errors.New("bad request")
)

// Store is the persistence collaborator for pickups and their audit trail.
// UpdateStatus must be a single atomic conditional write keyed on
// (status, status_version).
type Store interface {
	Create(ctx context.Context, p *Pickup) error
	Get(ctx context.Context, id types.ID) (*Pickup, error)
	GetByDonation(ctx context.Context, donationID types.ID) (*Pickup, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, fix *location.Fix) (bool, error)
	ListByVolunteer(ctx context.Context, volunteerID types.ID) ([]Pickup, error)
	AppendEvent(ctx context.Context, e *Event) error
	EventsByPickup(ctx context.Context, pickupID types.ID) ([]Event, error)
}

// Donations is the donation-side linkage used at the two coupling points:
// claim and delivery completion.
type Donations interface {
	ClaimForDelivery(ctx context.Context, donationID types.ID, volunteer donation.Assignee) (*donation.Donation, error)
	CompleteDelivery(ctx context.Context, donationID types.ID, deliveredAt time.Time) error
	ListInTransit(ctx context.Context) ([]donation.Donation, error)
}

type Service struct {
	store     Store
	donations Donations
	tracker   *location.Tracker
	recorder  *Recorder
	log       zerolog.Logger
}

func NewService(store Store, donations Donations, tracker *location.Tracker, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		donations: donations,
		tracker:   tracker,
		recorder:  NewRecorder(store, log),
		log:       log,
	}
}

type ClaimCommand struct {
	DonationID    types.ID
	VolunteerID   types.ID
	VolunteerName string
	Notes         string
}

type AdvanceCommand struct {
	PickupID types.ID
	To       Status
	ActorID  types.ID
}

// Claim turns an accepted donation into a delivery task. The donation-side
// compare-and-set runs first: of any number of concurrent claims exactly one
// volunteer wins, the rest get ErrConflict and no pickup row is ever
// created. Only then is the pickup written, so a pickup can never be
// duplicated by a retried claim.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*Pickup, error) {
	if cmd.DonationID == "" || cmd.VolunteerID == "" {
		return nil, ErrBadRequest
	}

	d, err := s.donations.ClaimForDelivery(ctx, cmd.DonationID, donation.Assignee{
		ID:   cmd.VolunteerID,
		Name: cmd.VolunteerName,
	})
	if err != nil {
		return nil, mapDonationErr(err)
	}

	now := time.Now()
	p := &Pickup{
		ID:            types.ID(uuid.NewString()),
		DonationID:    d.ID,
		DonorID:       d.DonorID,
		VolunteerID:   cmd.VolunteerID,
		Status:        StatusAssigned,
		StatusVersion: 0,
		FoodType:      d.FoodType,
		Quantity:      d.Quantity,
		Unit:          d.Unit,
		PickupAddress: d.PickupAddress + ", " + d.PickupCity,
		PickupContact: d.DonorName,
		HandlingNotes: d.HandlingNotes,
		Notes:         cmd.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.RecipientID != nil {
		p.RecipientID = *d.RecipientID
	}
	if d.DeliveryAddress != nil {
		p.DropoffAddress = *d.DeliveryAddress
	}
	if d.DeliveryContact != nil {
		p.DropoffContact = *d.DeliveryContact
	}

	if err := s.store.Create(ctx, p); err != nil {
		// The donation is already in_transit; the orphaned claim surfaces as
		// a Conflict on retry and needs operator attention.
		s.log.Error().Err(err).
			Str("donation_id", string(d.ID)).
			Str("volunteer_id", string(cmd.VolunteerID)).
			Msg("pickup create failed after donation claim")
		return nil, err
	}

	s.recorder.Record(ctx, &Event{
		PickupID:   p.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusAssigned,
		ActorID:    cmd.VolunteerID,
	})
	return p, nil
}

// Advance moves a pickup one step along the canonical ordering, or cancels
// it. Only the assigned volunteer may advance; any other actor is rejected
// outright, never queued. Location capture and history recording are
// best-effort and never block or roll back the transition.
func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) error {
	p, err := s.store.Get(ctx, cmd.PickupID)
	if err != nil {
		return err
	}
	if cmd.ActorID == "" || cmd.ActorID != p.VolunteerID {
		return ErrUnauthorized
	}
	if !CanTransition(p.Status, cmd.To) {
		return ErrInvalidTransition
	}

	fix := s.tracker.Capture(ctx, p.VolunteerID)

	ok, err := s.store.UpdateStatus(ctx, p.ID, p.Status, cmd.To, p.StatusVersion, fix)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}

	if cmd.To == StatusDelivered {
		s.closeDeliveredDonation(ctx, p.ID)
	}

	e := &Event{
		PickupID:   p.ID,
		FromStatus: p.Status,
		ToStatus:   cmd.To,
		ActorID:    cmd.ActorID,
	}
	if fix != nil {
		e.Lat, e.Lng = &fix.Point.Lat, &fix.Point.Lng
	}
	s.recorder.Record(ctx, e)
	return nil
}

// closeDeliveredDonation writes the derived side of the delivered saga: the
// pickup is the source of truth, the donation follows with the same stamp.
// A failure here leaves a pickup-ahead-of-donation window that the
// reconciler closes; the committed transition is not rolled back.
func (s *Service) closeDeliveredDonation(ctx context.Context, pickupID types.ID) {
	p, err := s.store.Get(ctx, pickupID)
	if err != nil {
		s.log.Error().Err(err).Str("pickup_id", string(pickupID)).Msg("reload after delivered failed")
		return
	}
	at := time.Now()
	if p.DeliveredAt != nil {
		at = *p.DeliveredAt
	}
	if err := s.donations.CompleteDelivery(ctx, p.DonationID, at); err != nil {
		s.log.Error().Err(err).
			Str("pickup_id", string(p.ID)).
			Str("donation_id", string(p.DonationID)).
			Msg("donation completion pending reconcile")
	}
}

// RunDeliveryReconciler periodically sweeps in_transit donations whose
// pickup already reached delivered and completes them. This is the repair
// loop for the saga's eventual-consistency window.
func (s *Service) RunDeliveryReconciler(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reconcileDelivered(ctx)
		}
	}
}

func (s *Service) reconcileDelivered(ctx context.Context) {
	open, err := s.donations.ListInTransit(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reconcile sweep failed")
		return
	}
	for _, d := range open {
		p, err := s.store.GetByDonation(ctx, d.ID)
		if err != nil || p.Status != StatusDelivered {
			continue
		}
		at := time.Now()
		if p.DeliveredAt != nil {
			at = *p.DeliveredAt
		}
		if err := s.donations.CompleteDelivery(ctx, d.ID, at); err != nil {
			s.log.Warn().Err(err).Str("donation_id", string(d.ID)).Msg("reconcile completion failed")
		}
	}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Pickup, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetByDonation(ctx context.Context, donationID types.ID) (*Pickup, error) {
	return s.store.GetByDonation(ctx, donationID)
}

// ListByVolunteer feeds a volunteer's personal queue.
func (s *Service) ListByVolunteer(ctx context.Context, volunteerID types.ID) ([]Pickup, error) {
	return s.store.ListByVolunteer(ctx, volunteerID)
}

// History returns the committed transition walk in true commit order.
func (s *Service) History(ctx context.Context, pickupID types.ID) ([]Event, error) {
	if _, err := s.store.Get(ctx, pickupID); err != nil {
		return nil, err
	}
	return s.store.EventsByPickup(ctx, pickupID)
}

func mapDonationErr(err error) error {
	switch {
	case errors.Is(err, donation.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, donation.ErrConflict):
		return ErrConflict
	case errors.Is(err, donation.ErrBadRequest):
		return ErrBadRequest
	default:
		return err
	}
}
