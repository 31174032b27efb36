package models

// Course mirrors the platform course row. IDNumber is the external CRM
// identifier; an empty value means the course is not CRM-managed.
type Course struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	FullName  string `gorm:"column:fullname"`
	ShortName string `gorm:"column:shortname"`
	IDNumber  string `gorm:"column:idnumber"`
}

func (Course) TableName() string {
	return "courses"
}
