// Package catalog holds the clinic's bookable services.
package catalog

import "time"

type Service struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Name            string   `gorm:"column:name;type:varchar(150);not null"`
	Description     string   `gorm:"column:description;type:text"`
	Price           *float64 `gorm:"column:price"`
	DurationMinutes *int     `gorm:"column:duration_minutes"`
	IsActive        bool     `gorm:"column:is_active;default:true"`
}

func (Service) TableName() string {
	return "services"
}
