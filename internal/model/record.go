package model

import (
	"strconv"
)

// CallStatus represents the dispatch state of a campaign call record.
type CallStatus string

const (
	StatusQueued          CallStatus = "QUEUED"
	StatusCalling         CallStatus = "CALLING"
	StatusCompleted       CallStatus = "COMPLETED"
	StatusFailed          CallStatus = "FAILED"
	StatusSummaryReceived CallStatus = "SUMMARY_RECEIVED"
)

// statusRank orders statuses along the forward-only lifecycle. A record never
// moves to a lower rank; SUMMARY_RECEIVED is terminal.
var statusRank = map[CallStatus]int{
	StatusQueued:          0,
	StatusCalling:         1,
	StatusCompleted:       2,
	StatusFailed:          2,
	StatusSummaryReceived: 3,
}

// CanTransition reports whether moving from s to next respects the forward-only
// lifecycle. Equal-rank moves are allowed only between COMPLETED and FAILED,
// which are alternative outcomes of the same dispatch, not a regression.
func (s CallStatus) CanTransition(next CallStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return true // unknown current value, don't block repair writes
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	if s == StatusSummaryReceived {
		return false
	}
	return to >= from
}

// CampaignColumns is the ordered column schema of the campaign store. The
// order is the wire contract with existing sheet data and must not change.
var CampaignColumns = []string{
	"contact_name",
	"target_phone_number",
	"caller_phone_number",
	"attempt_count",
	"status",
	"last_called_at",
	"next_call_time",
	"call_summary",
	"correlation_id",
	"notes",
}

// CallRecord is one row of the campaign store. RowNumber is an opaque
// positional locator assigned by the store; it carries no meaning beyond
// addressing the row for targeted updates.
type CallRecord struct {
	ContactName       string     `json:"contact_name"`
	TargetPhoneNumber string     `json:"target_phone_number"`
	CallerPhoneNumber string     `json:"caller_phone_number"`
	AttemptCount      int        `json:"attempt_count"`
	Status            CallStatus `json:"status"`
	LastCalledAt      string     `json:"last_called_at"`
	NextCallTime      string     `json:"next_call_time"`
	CallSummary       string     `json:"call_summary"`
	CorrelationID     string     `json:"correlation_id"`
	Notes             string     `json:"notes"`

	RowNumber int `json:"row_number,omitempty"`
}

// Row flattens the record into the ten-column wire order.
func (r CallRecord) Row() []string {
	return []string{
		r.ContactName,
		r.TargetPhoneNumber,
		r.CallerPhoneNumber,
		strconv.Itoa(r.AttemptCount),
		string(r.Status),
		r.LastCalledAt,
		r.NextCallTime,
		r.CallSummary,
		r.CorrelationID,
		r.Notes,
	}
}

// RecordFromRow builds a CallRecord from a raw store row, padding missing
// trailing cells with empty strings. A non-numeric attempt count maps to zero.
func RecordFromRow(row []string, rowNumber int) CallRecord {
	cells := make([]string, len(CampaignColumns))
	copy(cells, row)

	attempts, _ := strconv.Atoi(cells[3])

	return CallRecord{
		ContactName:       cells[0],
		TargetPhoneNumber: cells[1],
		CallerPhoneNumber: cells[2],
		AttemptCount:      attempts,
		Status:            CallStatus(cells[4]),
		LastCalledAt:      cells[5],
		NextCallTime:      cells[6],
		CallSummary:       cells[7],
		CorrelationID:     cells[8],
		Notes:             cells[9],
		RowNumber:         rowNumber,
	}
}
