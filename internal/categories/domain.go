package categories

import "time"

// Category labels transactions. Each user manages their own set.
type Category struct {
	ID        int64
	UserID    int64
	Name      string
	Kind      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// CreateCategoryInput for creating categories.
type CreateCategoryInput struct {
	UserID int64
	Name   string
	Kind   string
}
