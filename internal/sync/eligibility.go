package sync

import "github.com/kbwebsolutions/datasender/pkg/db/models"

// requiredRole is the only role that generates candidate-side records.
const requiredRole = "student"

// eligible decides whether an event's course and actor are in scope. A
// course without an external identifier is not CRM-managed, and an actor
// holding anything other than exactly one matching role is skipped.
func eligible(course *models.Course, roles []models.Role, role string) bool {
	if course == nil || course.IDNumber == "" {
		return false
	}
	if len(roles) != 1 {
		return false
	}
	return roles[0].ShortName == role
}
