package core

import (
	"errors"
	"strconv"
	"time"
)

// ReportKind selects which matrix an export contains.
type ReportKind string

const (
	CostsReport  ReportKind = "costs"
	IncomeReport ReportKind = "income"
)

func (k ReportKind) Valid() bool {
	return k == CostsReport || k == IncomeReport
}

// Label is the Spanish name used in sheet titles and PDF headers.
func (k ReportKind) Label() string {
	if k == IncomeReport {
		return "Ingresos"
	}
	return "Costos"
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

var ErrJobNotFound = errors.New("export job not found")

// ExportJob is a request to write a report matrix to the spreadsheet.
type ExportJob struct {
	ID          string     `json:"id"`
	Kind        ReportKind `json:"kind"`
	Year        int        `json:"year"`
	Granularity string     `json:"granularity"`
	CostCenter  string     `json:"costCenter,omitempty"`
	Status      JobStatus  `json:"status"`
	SheetRef    string     `json:"sheetRef,omitempty"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (j ExportJob) Validate() FieldErrors {
	errs := FieldErrors{}
	if !j.Kind.Valid() {
		errs.Add("kind", "Tipo de reporte inválido")
	}
	if j.Year < 2000 || j.Year > 2100 {
		errs.Add("year", "Año inválido")
	}
	switch j.Granularity {
	case "week", "month", "quarter", "year":
	default:
		errs.Add("granularity", "Periodicidad inválida")
	}
	return errs
}

// SheetTitle is the tab the job writes to, e.g. "2025 Costos month".
func (j ExportJob) SheetTitle() string {
	title := strconv.Itoa(j.Year) + " " + j.Kind.Label() + " " + j.Granularity
	if j.CostCenter != "" {
		title += " CC" + j.CostCenter
	}
	return title
}
