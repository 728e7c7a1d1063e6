package db

import (
	"context"
	"fmt"
	"time"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

func tripSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"carpool_trips.id", "carpool_trips.departure", "carpool_trips.destination",
		"carpool_trips.departure_time", "carpool_trips.status",
		"carpool_trips.available_seats", "carpool_trips.created_at",
		"users.id", "users.first_name", "users.last_name",
	)
	sb.From("carpool_trips")
	sb.Join("users", "users.id = carpool_trips.driver_id")
	return sb
}

// CreateTrip inserts a new carpool trip and returns its id.
func (db *DB) CreateTrip(ctx context.Context, driverId int64, departure, destination string, departureTime time.Time, seats int) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("carpool_trips")
	ib.Cols("driver_id", "departure", "destination", "departure_time", "available_seats")
	ib.Values(driverId, departure, destination, departureTime, seats)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// JoinTrip claims one seat on a pending trip for the given user. The seat
// decrement and the passenger row are committed together.
func (db *DB) JoinTrip(ctx context.Context, tripId, userId int64) error {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin error: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE carpool_trips
		SET available_seats = available_seats - 1
		WHERE id = $1 AND status = $2 AND available_seats > 0`,
		tripId, models.TripPending,
	)
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	if affected == 0 {
		return ErrNoSeats
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO carpool_passengers (trip_id, user_id) VALUES ($1, $2)",
		tripId, userId,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyJoined
		}
		return fmt.Errorf("insert error: %w", err)
	}

	return tx.Commit()
}

// GetTrip returns a single trip with driver and passenger identities.
func (db *DB) GetTrip(ctx context.Context, id int64) (*models.CarpoolView, error) {
	sb := tripSelect()
	sb.Where(sb.Equal("carpool_trips.id", id))

	trips, err := db.queryTrips(ctx, sb)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, ErrNotFound
	}
	return &trips[0], nil
}

// ListTrips returns pending trips departing after now, soonest first.
func (db *DB) ListTrips(ctx context.Context, limit int, now time.Time) ([]models.CarpoolView, error) {
	sb := tripSelect()
	sb.Where(sb.Equal("carpool_trips.status", models.TripPending))
	sb.Where(sb.GreaterEqualThan("carpool_trips.departure_time", now))
	sb.OrderBy("carpool_trips.departure_time").Asc()
	sb.Limit(limit)

	return db.queryTrips(ctx, sb)
}

// UpcomingCarpools returns at most count joinable trips departing within the
// next seven days relative to now, soonest first. Feed source for carpools.
func (db *DB) UpcomingCarpools(ctx context.Context, count int, now time.Time) ([]models.CarpoolView, error) {
	if count <= 0 {
		return nil, nil
	}

	sb := tripSelect()
	sb.Where(sb.Equal("carpool_trips.status", models.TripPending))
	sb.Where(sb.GreaterThan("carpool_trips.available_seats", 0))
	sb.Where(sb.GreaterEqualThan("carpool_trips.departure_time", now))
	sb.Where(sb.LessEqualThan("carpool_trips.departure_time", now.AddDate(0, 0, 7)))
	sb.OrderBy("carpool_trips.departure_time").Asc()
	sb.Limit(count)

	return db.queryTrips(ctx, sb)
}

func (db *DB) queryTrips(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.CarpoolView, error) {
	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var trips []models.CarpoolView
	var ids []int64
	for rows.Next() {
		var trip models.CarpoolView
		if err := rows.Scan(
			&trip.Id, &trip.Departure, &trip.Destination,
			&trip.DepartureTime, &trip.Status, &trip.AvailableSeats, &trip.CreatedAt,
			&trip.Driver.Id, &trip.Driver.FirstName, &trip.Driver.LastName,
		); err != nil {
			log.WithFields(log.Fields{"error": err}).Warn("Skipping malformed trip row")
			continue
		}
		trip.Passengers = []models.UserRef{}
		trips = append(trips, trip)
		ids = append(ids, trip.Id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(trips) == 0 {
		return trips, nil
	}

	// One follow-up query resolves every passenger identity, then seats
	// totals are derived as available + committed.
	passengers, err := db.tripPassengers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range trips {
		if refs, ok := passengers[trips[i].Id]; ok {
			trips[i].Passengers = refs
		}
		trips[i].TotalSeats = trips[i].AvailableSeats + len(trips[i].Passengers)
	}

	return trips, nil
}

func (db *DB) tripPassengers(ctx context.Context, tripIds []int64) (map[int64][]models.UserRef, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT carpool_passengers.trip_id, users.id, users.first_name, users.last_name
		FROM carpool_passengers
		JOIN users ON users.id = carpool_passengers.user_id
		WHERE carpool_passengers.trip_id = ANY($1)
		ORDER BY carpool_passengers.created_at`,
		pq.Array(tripIds),
	)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	passengers := make(map[int64][]models.UserRef)
	for rows.Next() {
		var tripId int64
		var ref models.UserRef
		if err := rows.Scan(&tripId, &ref.Id, &ref.FirstName, &ref.LastName); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		passengers[tripId] = append(passengers[tripId], ref)
	}

	return passengers, rows.Err()
}
