package repository

import (
	"context"
	"database/sql"
	"fmt"

	"parkspot/internal/db"
)

type AreaRepository struct {
	DB *sql.DB
}

func NewAreaRepository(database *sql.DB) *AreaRepository {
	return &AreaRepository{DB: database}
}

func (r *AreaRepository) ListAreas(ctx context.Context) ([]db.ParkingArea, error) {
	query := `
		SELECT id, name, city, address, latitude, longitude, price_per_hour
		FROM parking_areas ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying parking areas: %w", err)
	}
	defer rows.Close()

	var areas []db.ParkingArea
	for rows.Next() {
		var a db.ParkingArea
		if err := rows.Scan(&a.ID, &a.Name, &a.City, &a.Address, &a.Latitude, &a.Longitude, &a.PricePerHour); err != nil {
			return nil, fmt.Errorf("error scanning parking area: %w", err)
		}
		areas = append(areas, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating area rows: %w", err)
	}
	return areas, nil
}

// CountSlots is used by the admin listing to show area capacity alongside
// the area itself.
func (r *AreaRepository) CountSlots(ctx context.Context, areaID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_slots WHERE area_id = $1`, areaID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting slots for area %d: %w", areaID, err)
	}
	return count, nil
}
