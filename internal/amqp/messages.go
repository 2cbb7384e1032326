package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportExportMessage announces a stored export job. The worker loads the job
// by id and rebuilds the report from the ERP.
type ReportExportMessage struct {
	JobID     string    `json:"jobId"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(jobID, kind string) *ReportExportMessage {
	return &ReportExportMessage{
		JobID:     jobID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON decodes a message and rejects ones without a job id.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" {
		return nil, errors.New("message has no job id")
	}
	return &msg, nil
}
