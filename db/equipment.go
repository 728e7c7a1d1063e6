package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campushub/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

func equipmentSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"equipment.id", "equipment.name", "equipment.category",
		"equipment.description", "equipment.created_at",
		"users.id", "users.first_name", "users.last_name",
	)
	sb.From("equipment")
	sb.Join("users", "users.id = equipment.owner_id")
	return sb
}

func scanEquipment(rows *sql.Rows) ([]models.EquipmentView, error) {
	var items []models.EquipmentView
	for rows.Next() {
		var item models.EquipmentView
		var description sql.NullString
		if err := rows.Scan(
			&item.Id, &item.Name, &item.Category, &description, &item.CreatedAt,
			&item.Owner.Id, &item.Owner.FirstName, &item.Owner.LastName,
		); err != nil {
			// One broken row must not fail the whole fetch
			log.WithFields(log.Fields{"error": err}).Warn("Skipping malformed equipment row")
			continue
		}
		item.Description = description.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateEquipment inserts a new listing and returns its id.
func (db *DB) CreateEquipment(ctx context.Context, ownerId int64, name, category, description string) (int64, error) {
	ctx, cancel := writeContext(ctx)
	defer cancel()

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("equipment")
	ib.Cols("owner_id", "name", "category", "description")
	ib.Values(ownerId, name, category, description)
	query, args := ib.Build()
	query += " RETURNING id"

	var id int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	return id, nil
}

// GetEquipment returns a single listing with its owner identity.
func (db *DB) GetEquipment(ctx context.Context, id int64) (*models.EquipmentView, error) {
	sb := equipmentSelect()
	sb.Where(sb.Equal("equipment.id", id))

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	items, err := scanEquipment(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// ListEquipment returns listings newest first.
func (db *DB) ListEquipment(ctx context.Context, limit int) ([]models.EquipmentView, error) {
	sb := equipmentSelect()
	sb.OrderBy("equipment.created_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}

// RecentEquipment returns at most count listings created within the trailing
// seven days relative to now, newest first. Feed source for equipment items.
func (db *DB) RecentEquipment(ctx context.Context, count int, now time.Time) ([]models.EquipmentView, error) {
	if count <= 0 {
		return nil, nil
	}

	sb := equipmentSelect()
	sb.Where(sb.GreaterEqualThan("equipment.created_at", now.AddDate(0, 0, -7)))
	sb.OrderBy("equipment.created_at").Desc()
	sb.Limit(count)

	query, args := sb.Build()
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	return scanEquipment(rows)
}
