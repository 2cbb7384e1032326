package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense LineKind = "expense"
	Income  LineKind = "income"
)

type (
	LineKind string

	Date struct {
		time.Time
	}

	Money struct {
		Amount int64
	}

	CostCenter struct {
		ID   int64  `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	}

	Employee struct {
		ID           int64  `json:"id"`
		RUT          string `json:"rut"`
		Name         string `json:"name"`
		Position     string `json:"position"`
		Department   string `json:"department"`
		HireDate     Date   `json:"hireDate"`
		BaseSalary   Money  `json:"baseSalary"`
		Active       bool   `json:"active"`
		CostCenterID int64  `json:"costCenterId,omitempty"`
	}

	// Remuneracion is a monthly payroll record. NetSalary and Advance are
	// the canonical values; legacy wire names are produced by the erp package.
	Remuneracion struct {
		ID            int64              `json:"id"`
		EmployeeID    int64              `json:"employeeId"`
		EmployeeName  string             `json:"employeeName,omitempty"`
		Year          int                `json:"year"`
		Month         int                `json:"month"`
		NetSalary     Money              `json:"netSalary"`
		Advance       Money              `json:"advance"`
		Status        RemuneracionStatus `json:"status"`
		PaymentMethod PaymentMethod      `json:"paymentMethod"`
		CostCenterID  int64              `json:"costCenterId,omitempty"`
	}

	Previsional struct {
		ID           int64           `json:"id"`
		EmployeeID   int64           `json:"employeeId"`
		CostCenterID int64           `json:"costCenterId"`
		Type         PrevisionalType `json:"type"`
		Amount       Money           `json:"amount"`
		Date         Date            `json:"date"`
	}

	// LineItem is a cost or income entry as returned by the ERP.
	LineItem struct {
		ID           int64           `json:"id"`
		Kind         LineKind        `json:"kind"`
		Category     string          `json:"category"`
		Description  string          `json:"description"`
		Date         Date            `json:"date"`
		Amount       Money           `json:"amount"`
		Status       string          `json:"status"`
		CostCenterID int64           `json:"costCenterId,omitempty"`
		ProjectID    int64           `json:"projectId,omitempty"`
		Factoring    FactoringStatus `json:"factoring,omitempty"`
	}

	Project struct {
		ID        int64         `json:"id"`
		Name      string        `json:"name"`
		Budget    Money         `json:"budget"`
		Status    ProjectStatus `json:"status"`
		StartDate Date          `json:"startDate"`
		EndDate   Date          `json:"endDate"`
		Progress  int           `json:"progress"`
		Income    Money         `json:"income"`
		Expenses  Money         `json:"expenses"`
		Balance   Money         `json:"balance"`
	}

	Milestone struct {
		ID        int64  `json:"id"`
		ProjectID int64  `json:"projectId"`
		Name      string `json:"name"`
		DueDate   Date   `json:"dueDate"`
		Amount    Money  `json:"amount"`
		Done      bool   `json:"done"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and truncates to the calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, errors.New("empty date")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// ISO returns the date as YYYY-MM-DD, or "" when zero.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" || s == "false" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Total is the amount paid for the period: net salary plus advance.
func (r Remuneracion) Total() Money {
	return r.NetSalary.Add(r.Advance)
}

func (r Remuneracion) Validate() FieldErrors {
	errs := FieldErrors{}
	if r.EmployeeID <= 0 {
		errs.Add("employeeId", "Seleccione un empleado")
	}
	if r.Month < 1 || r.Month > 12 {
		errs.Add("month", "Mes inválido")
	}
	if r.Year < 2000 || r.Year > 2100 {
		errs.Add("year", "Año inválido")
	}
	if err := r.NetSalary.Validate(); err != nil {
		errs.Add("netSalary", "El sueldo líquido debe ser mayor a cero")
	}
	if r.Advance.Amount < 0 {
		errs.Add("advance", "El anticipo no puede ser negativo")
	}
	if r.Status != "" && !r.Status.Known() {
		errs.Add("status", "Estado desconocido")
	}
	if r.PaymentMethod != "" && !r.PaymentMethod.Known() {
		errs.Add("paymentMethod", "Método de pago desconocido")
	}
	return errs
}

// Period returns the payroll period a previsional record belongs to.
func (p Previsional) Period() (year, month int) {
	return p.Date.Year(), p.Date.Month()
}

func (p Previsional) Validate() FieldErrors {
	errs := FieldErrors{}
	if p.EmployeeID <= 0 {
		errs.Add("employeeId", "Seleccione un empleado")
	}
	if p.CostCenterID <= 0 {
		errs.Add("costCenterId", "Seleccione un centro de costo")
	}
	if !p.Type.Known() {
		errs.Add("type", "Tipo previsional desconocido")
	}
	if err := p.Amount.Validate(); err != nil {
		errs.Add("amount", "El monto debe ser mayor a cero")
	}
	if err := p.Date.Validate(); err != nil {
		errs.Add("date", "Fecha inválida")
	}
	return errs
}

func (e Employee) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(e.Name) == "" {
		errs.Add("name", "El nombre es obligatorio")
	}
	if !ValidRUT(e.RUT) {
		errs.Add("rut", "RUT inválido")
	}
	if e.BaseSalary.Amount < 0 {
		errs.Add("baseSalary", "El sueldo base no puede ser negativo")
	}
	return errs
}

func (p Project) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(p.Name) == "" {
		errs.Add("name", "El nombre es obligatorio")
	}
	if len(p.Name) > 200 {
		errs.Add("name", "Nombre demasiado largo (máx. 200 caracteres)")
	}
	if p.Budget.Amount < 0 {
		errs.Add("budget", "El presupuesto no puede ser negativo")
	}
	if p.Status != "" && !p.Status.Known() {
		errs.Add("status", "Estado desconocido")
	}
	if p.Progress < 0 || p.Progress > 100 {
		errs.Add("progress", "El avance debe estar entre 0 y 100")
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate.Time) {
		errs.Add("endDate", "La fecha de término debe ser posterior al inicio")
	}
	return errs
}

func (m Milestone) Validate() FieldErrors {
	errs := FieldErrors{}
	if m.ProjectID <= 0 {
		errs.Add("projectId", "Proyecto inválido")
	}
	if strings.TrimSpace(m.Name) == "" {
		errs.Add("name", "El nombre es obligatorio")
	}
	if err := m.DueDate.Validate(); err != nil {
		errs.Add("dueDate", "Fecha inválida")
	}
	if m.Amount.Amount < 0 {
		errs.Add("amount", "El monto no puede ser negativo")
	}
	return errs
}

// Validate checks an income or expense entry.
func (l LineItem) Validate() FieldErrors {
	errs := FieldErrors{}
	if l.Kind != Expense && l.Kind != Income {
		errs.Add("kind", "Tipo inválido")
	}
	if strings.TrimSpace(l.Category) == "" {
		errs.Add("category", ErrEmptyCategory.Error())
	}
	if strings.TrimSpace(l.Description) == "" {
		errs.Add("description", "La descripción es obligatoria")
	}
	if len(l.Description) > 200 {
		errs.Add("description", "Descripción demasiado larga (máx. 200 caracteres)")
	}
	if err := l.Date.Validate(); err != nil {
		errs.Add("date", "Fecha inválida")
	}
	if err := l.Amount.Validate(); err != nil {
		errs.Add("amount", "El monto debe ser mayor a cero")
	}
	if l.Factoring != "" && !l.Factoring.Known() {
		errs.Add("factoring", "Estado de factoring desconocido")
	}
	return errs
}
