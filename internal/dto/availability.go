package dto

import "time"

// PostSlotRequest submits a new availability window for the calling student.
type PostSlotRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}
