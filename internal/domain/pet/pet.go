package pet

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
)

type Pet struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	OwnerID int64        `gorm:"column:owner_id;not null;index"`
	Owner   *domain.User `gorm:"foreignKey:OwnerID"`

	Name     string   `gorm:"column:name;type:varchar(100);not null"`
	Species  string   `gorm:"column:species;type:varchar(50)"`
	Breed    string   `gorm:"column:breed;type:varchar(100)"`
	Age      *int     `gorm:"column:age"`
	Weight   *float64 `gorm:"column:weight"`
	IsActive bool     `gorm:"column:is_active;default:true;index"`
}

func (Pet) TableName() string {
	return "pets"
}

// OwnerEmail returns the owner's contact address, or "" when the owner was
// not loaded.
func (p *Pet) OwnerEmail() string {
	if p.Owner == nil {
		return ""
	}
	return p.Owner.Email
}
