package model

// ResultColumns is the ordered column schema of the results store, one row per
// processed end-of-call report. Independent of CampaignColumns; the two live
// in separate sheets in the production deployment.
var ResultColumns = []string{
	"timestamp",
	"correlation_id",
	"summary",
	"name",
	"email",
	"phone",
	"intent",
	"vehicle_make",
	"vehicle_model",
	"vehicle_mileage",
	"escalation_status",
	"follow_up_due",
	"call_duration",
	"call_status",
	"raw_payload_excerpt",
}

// ResultRow is the canonical flat output of the event parser. Field names
// match ResultColumns one-to-one.
type ResultRow struct {
	Timestamp         string `json:"timestamp"`
	CorrelationID     string `json:"correlation_id"`
	Summary           string `json:"summary"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Intent            string `json:"intent"`
	VehicleMake       string `json:"vehicle_make"`
	VehicleModel      string `json:"vehicle_model"`
	VehicleMileage    string `json:"vehicle_mileage"`
	EscalationStatus  string `json:"escalation_status"`
	FollowUpDue       string `json:"follow_up_due"`
	CallDuration      string `json:"call_duration"`
	CallStatus        string `json:"call_status"`
	RawPayloadExcerpt string `json:"raw_payload_excerpt"`
}

// Row flattens the result into the fifteen-column wire order.
func (r ResultRow) Row() []string {
	return []string{
		r.Timestamp,
		r.CorrelationID,
		r.Summary,
		r.Name,
		r.Email,
		r.Phone,
		r.Intent,
		r.VehicleMake,
		r.VehicleModel,
		r.VehicleMileage,
		r.EscalationStatus,
		r.FollowUpDue,
		r.CallDuration,
		r.CallStatus,
		r.RawPayloadExcerpt,
	}
}
