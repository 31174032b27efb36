package models

// Role is a platform role definition (student, editingteacher, ...).
type Role struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	ShortName string `gorm:"column:shortname"`
}

func (Role) TableName() string {
	return "roles"
}

// RoleAssignment is a user's role in a course context. The role_assigned
// event references one of these rows by snapshot id.
type RoleAssignment struct {
	ID       int64 `gorm:"column:id;primaryKey;autoIncrement"`
	RoleID   int64 `gorm:"column:roleid;not null"`
	CourseID int64 `gorm:"column:courseid;not null"`
	UserID   int64 `gorm:"column:userid;not null"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}
