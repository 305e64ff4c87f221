// README: Volunteer position store backed by Redis GEO.
package location

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"mealbridge/internal/types"
)

const volunteerGeoKey = "location:volunteers"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SetVolunteer(ctx context.Context, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, volunteerGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *Store) RemoveVolunteer(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, volunteerGeoKey, string(id)).Err()
}

// CurrentPosition returns the volunteer's last reported position, making
// the store usable as the production Geolocator.
func (s *Store) CurrentPosition(ctx context.Context, id types.ID) (types.Point, error) {
	pos, err := s.redis.GeoPos(ctx, volunteerGeoKey, string(id)).Result()
	if err != nil {
		return types.Point{}, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return types.Point{}, errors.New("no position reported")
	}
	return types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, nil
}

// VolunteerDistance is one nearby-search hit.
type VolunteerDistance struct {
	ID         types.ID
	Point      types.Point
	DistanceKm float64
}

// NearbyVolunteers returns volunteers within radiusKm of p, closest first.
// Distances are recomputed from the returned coordinates so the ordering is
// consistent with DistanceKm.
func (s *Store) NearbyVolunteers(ctx context.Context, p types.Point, radiusKm float64) ([]VolunteerDistance, error) {
	results, err := s.redis.GeoSearchLocation(ctx, volunteerGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]VolunteerDistance, len(results))
	for i, r := range results {
		pos := types.Point{Lat: r.Latitude, Lng: r.Longitude}
		out[i] = VolunteerDistance{
			ID:         types.ID(r.Name),
			Point:      pos,
			DistanceKm: DistanceKm(p, pos),
		}
	}
	SortByDistance(out, func(v VolunteerDistance) float64 { return v.DistanceKm })
	return out, nil
}
