// README: Donation service tests (lifecycle + invalid requests).
package donation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mealbridge/internal/modules/realtime"
	"mealbridge/internal/types"
)

// TestCanTransition verifies the donation state machine without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// the linear walk
		{StatusAvailable, StatusAccepted, true},
		{StatusAccepted, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		// no skipping
		{StatusAvailable, StatusInTransit, false},
		{StatusAvailable, StatusDelivered, false},
		{StatusAccepted, StatusDelivered, false},
		// no regression
		{StatusAccepted, StatusAvailable, false},
		{StatusInTransit, StatusAccepted, false},
		// delivered is terminal and permanent
		{StatusDelivered, StatusAvailable, false},
		{StatusDelivered, StatusAccepted, false},
		{StatusDelivered, StatusInTransit, false},
		// no self-loops
		{StatusAvailable, StatusAvailable, false},
		{StatusDelivered, StatusDelivered, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func newTestService() *Service {
	return NewService(NewMemStore(realtime.NewMemBus()), nil, nil, zerolog.Nop())
}

func validCreate(donorID types.ID) CreateCommand {
	return CreateCommand{
		DonorID:       donorID,
		DonorName:     "Corner Bakery",
		FoodType:      "bread",
		Quantity:      12,
		Unit:          "loaves",
		PickupAddress: "12 Mill Lane",
		PickupCity:    "Springfield",
		ExpiryDate:    time.Now().Add(48 * time.Hour),
	}
}

func mustCreate(t *testing.T, svc *Service, donorID types.ID) types.ID {
	t.Helper()
	id, err := svc.Create(context.Background(), validCreate(donorID))
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return id
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateCommand)
	}{
		{"missing donor", func(c *CreateCommand) { c.DonorID = "" }},
		{"missing food type", func(c *CreateCommand) { c.FoodType = "" }},
		{"missing unit", func(c *CreateCommand) { c.Unit = "" }},
		{"missing address", func(c *CreateCommand) { c.PickupAddress = "" }},
		{"zero quantity", func(c *CreateCommand) { c.Quantity = 0 }},
		{"negative quantity", func(c *CreateCommand) { c.Quantity = -3 }},
		{"zero expiry", func(c *CreateCommand) { c.ExpiryDate = time.Time{} }},
		{"past expiry", func(c *CreateCommand) { c.ExpiryDate = time.Now().Add(-time.Hour) }},
	}
	for _, tc := range cases {
		cmd := validCreate("d_validation")
		tc.mutate(&cmd)
		if _, err := svc.Create(ctx, cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("%s: expected ErrBadRequest, got %v", tc.name, err)
		}
	}
}

func TestCreateStartsAvailable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_creates")

	d, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Status != StatusAvailable {
		t.Fatalf("expected available, got %s", d.Status)
	}
	if d.RecipientID != nil || d.VolunteerID != nil {
		t.Fatal("new donation must have no assignees")
	}

	open, err := svc.ListAvailable(ctx, "")
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(open) != 1 || open[0].ID != id {
		t.Fatalf("expected the new donation in the available list, got %d entries", len(open))
	}
}

func TestListAvailableFoodTypeFilter(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, "d_filter")
	cmd := validCreate("d_filter")
	cmd.FoodType = "produce"
	if _, err := svc.Create(ctx, cmd); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.ListAvailable(ctx, "produce")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].FoodType != "produce" {
		t.Fatalf("expected exactly the produce donation, got %d entries", len(got))
	}
}

func TestAcceptBindsRecipient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_accept")

	err := svc.Accept(ctx, AcceptCommand{
		DonationID:      id,
		RecipientID:     "r1",
		RecipientName:   "Shelter North",
		DeliveryAddress: "4 Harbor Rd, Springfield",
		DeliveryContact: "555-0101",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	d, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", d.Status)
	}
	if d.RecipientID == nil || *d.RecipientID != "r1" {
		t.Fatal("expected recipient to be bound")
	}
	if d.DeliveryAddress == nil || *d.DeliveryAddress != "4 Harbor Rd, Springfield" {
		t.Fatal("expected delivery address to be captured")
	}
	if d.AcceptedAt == nil {
		t.Fatal("expected accepted_at to be stamped")
	}
}

func TestAcceptValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_accept_validation")

	if err := svc.Accept(ctx, AcceptCommand{DonationID: id, DeliveryAddress: "x"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for missing recipient, got %v", err)
	}
	if err := svc.Accept(ctx, AcceptCommand{DonationID: id, RecipientID: "r1"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for missing delivery address, got %v", err)
	}
	err := svc.Accept(ctx, AcceptCommand{DonationID: "missing", RecipientID: "r1", DeliveryAddress: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcceptTwiceConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_accept_twice")

	first := AcceptCommand{DonationID: id, RecipientID: "r1", RecipientName: "Shelter North", DeliveryAddress: "4 Harbor Rd", DeliveryContact: "555-0101"}
	if err := svc.Accept(ctx, first); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	second := AcceptCommand{DonationID: id, RecipientID: "r2", RecipientName: "Shelter South", DeliveryAddress: "9 Dock St", DeliveryContact: "555-0202"}
	if err := svc.Accept(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	d, _ := svc.Get(ctx, id)
	if d.RecipientID == nil || *d.RecipientID != "r1" {
		t.Fatal("losing accept must not overwrite the recipient")
	}
}

func TestClaimForDelivery(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_claim")

	// claiming an available donation skips a step
	if _, err := svc.ClaimForDelivery(ctx, id, Assignee{ID: "v1", Name: "Pat"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on unaccepted donation, got %v", err)
	}

	if err := svc.Accept(ctx, AcceptCommand{DonationID: id, RecipientID: "r1", DeliveryAddress: "4 Harbor Rd"}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	d, err := svc.ClaimForDelivery(ctx, id, Assignee{ID: "v1", Name: "Pat"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if d.Status != StatusInTransit {
		t.Fatalf("expected in_transit, got %s", d.Status)
	}
	if d.VolunteerID == nil || *d.VolunteerID != "v1" {
		t.Fatal("expected volunteer to be bound")
	}
	if d.PickupAt == nil {
		t.Fatal("expected pickup_at to be stamped")
	}

	if _, err := svc.ClaimForDelivery(ctx, id, Assignee{ID: "v2", Name: "Sam"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second claim, got %v", err)
	}
}

func TestCompleteDeliveryIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_complete")
	if err := svc.Accept(ctx, AcceptCommand{DonationID: id, RecipientID: "r1", DeliveryAddress: "4 Harbor Rd"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.ClaimForDelivery(ctx, id, Assignee{ID: "v1"}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stamp := time.Now().Add(-time.Minute).Truncate(time.Second)
	if err := svc.CompleteDelivery(ctx, id, stamp); err != nil {
		t.Fatalf("complete: %v", err)
	}
	// retry is a no-op, not a conflict
	if err := svc.CompleteDelivery(ctx, id, time.Now()); err != nil {
		t.Fatalf("second complete: %v", err)
	}

	d, _ := svc.Get(ctx, id)
	if d.Status != StatusDelivered {
		t.Fatalf("expected delivered, got %s", d.Status)
	}
	if d.DeliveredAt == nil || !d.DeliveredAt.Equal(stamp) {
		t.Fatal("expected the caller's delivery stamp, not the retry's")
	}
}

func TestCompleteDeliverySkippingConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id := mustCreate(t, svc, "d_complete_skip")
	if err := svc.CompleteDelivery(ctx, id, time.Now()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict completing an available donation, got %v", err)
	}
}

// Enrichment failures must never block a listing.
func TestCreateSurvivesEnrichmentFailure(t *testing.T) {
	store := NewMemStore(realtime.NewMemBus())
	svc := NewService(store, failingGeocoder{}, failingAdvisor{}, zerolog.Nop())
	ctx := context.Background()

	id, err := svc.Create(ctx, validCreate("d_enrich"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.PickupLat != nil || d.HandlingNotes != "" {
		t.Fatal("failed enrichment must leave the fields empty")
	}
}

func TestCreateAppliesEnrichment(t *testing.T) {
	store := NewMemStore(realtime.NewMemBus())
	svc := NewService(store, fixedGeocoder{p: types.Point{Lat: 40.1, Lng: -88.2}}, fixedAdvisor{notes: "keep chilled"}, zerolog.Nop())
	ctx := context.Background()

	id, err := svc.Create(ctx, validCreate("d_enrich_ok"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d, _ := svc.Get(ctx, id)
	if d.PickupLat == nil || *d.PickupLat != 40.1 {
		t.Fatal("expected geocoded coordinates")
	}
	if d.HandlingNotes != "keep chilled" {
		t.Fatalf("expected handling notes, got %q", d.HandlingNotes)
	}
}

type failingGeocoder struct{}

func (failingGeocoder) Locate(context.Context, string) (types.Point, error) {
	return types.Point{}, errors.New("geocoder down")
}

type failingAdvisor struct{}

func (failingAdvisor) HandlingNotes(context.Context, string, float64, string, time.Time) (string, error) {
	return "", errors.New("advisor down")
}

type fixedGeocoder struct{ p types.Point }

func (g fixedGeocoder) Locate(context.Context, string) (types.Point, error) {
	return g.p, nil
}

type fixedAdvisor struct{ notes string }

func (a fixedAdvisor) HandlingNotes(context.Context, string, float64, string, time.Time) (string, error) {
	return a.notes, nil
}
