package models

import "strings"

// Scale is a custom grading scale: an ordered, comma-separated option list.
type Scale struct {
	ID    int64  `gorm:"column:id;primaryKey"`
	Name  string `gorm:"column:name"`
	Scale string `gorm:"column:scale;not null"`
}

func (Scale) TableName() string {
	return "scales"
}

// Options splits the scale definition into its ordered option labels.
func (s Scale) Options() []string {
	parts := strings.Split(s.Scale, ",")
	options := make([]string, 0, len(parts))
	for _, part := range parts {
		options = append(options, strings.TrimSpace(part))
	}
	return options
}
