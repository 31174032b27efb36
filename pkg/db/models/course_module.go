package models

// CourseModule is an activity placed in a course (quiz, assignment). ID is
// the context instance id carried on events; Instance points at the
// module-specific row (quiz id, assignment id). Name and IDNumber are
// denormalized from the activity instance the way the platform's module info
// cache exposes them.
type CourseModule struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	CourseID int64  `gorm:"column:courseid;not null"`
	Module   string `gorm:"column:module;not null"`
	Instance int64  `gorm:"column:instance;not null"`
	Name     string `gorm:"column:name"`
	IDNumber string `gorm:"column:idnumber"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}
