package models

// Customer is referenced by invoices. Read-only from the dashboard.
type Customer struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"size:255;not null" json:"email"`
	ImageURL string `gorm:"size:255;not null" json:"image_url"`
}

// CustomerField is the id/name pair used by the invoice form select.
type CustomerField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
