package models

// Revenue is one month of the revenue chart, in whole dollars.
type Revenue struct {
	Month   string `gorm:"primaryKey;size:4" json:"month"`
	Revenue int64  `gorm:"not null" json:"revenue"`
}

// TableName keeps the singular table name used by the SQL migrations.
func (Revenue) TableName() string { return "revenue" }
