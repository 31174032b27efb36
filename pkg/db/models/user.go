package models

// User mirrors the platform user row. Username doubles as the CRM candidate
// and assessor external id (APIID).
type User struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	Username  string `gorm:"column:username"`
	FirstName string `gorm:"column:firstname"`
	LastName  string `gorm:"column:lastname"`
	IDNumber  string `gorm:"column:idnumber"`
}

func (User) TableName() string {
	return "users"
}
