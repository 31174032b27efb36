package models

import "time"

// QueueRecord is the durable audit row appended for every accepted event,
// written before any dispatch attempt. Rows are append-only; the dispatch
// bookkeeping columns are touched only by the queue-sender.
type QueueRecord struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Event        string     `gorm:"column:event;not null"`
	Data         string     `gorm:"column:data;type:text;not null"`
	Adapter      string     `gorm:"column:adapter;not null;default:'1'"`
	Path         string     `gorm:"column:path;not null;default:''"`
	Method       string     `gorm:"column:method;not null;default:'POST'"`
	TimeCreated  int64      `gorm:"column:timecreated;not null"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at"`
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
}

// TableName pins the table used by the queue repository.
func (QueueRecord) TableName() string {
	return "queue_records"
}
