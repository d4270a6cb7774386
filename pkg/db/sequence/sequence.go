package sequence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Next increments the named counter and returns its new value. The counter
// row is created on first use. Callers inside a transaction get a gap-free
// sequence because the increment commits or rolls back with them.
func Next(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO receipt_counters (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = receipt_counters.value + 1
		 RETURNING value`,
		name,
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("next %s number: %w", name, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("next %s number: counter returned no row", name)
	}
	return value, nil
}
