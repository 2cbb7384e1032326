package erp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"backoffice/internal/core"
)

// amount is a monetary wire value. The ERP sends numbers, numeric strings,
// or false for "unset".
type amount struct {
	decimal.Decimal
	Valid bool
}

func amountOf(m core.Money) amount {
	return amount{Decimal: m.Decimal(), Valid: true}
}

func (a *amount) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case "null", "false", `""`:
		*a = amount{}
		return nil
	}
	if err := a.Decimal.UnmarshalJSON(b); err != nil {
		return err
	}
	a.Valid = true
	return nil
}

func (a amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Decimal.String()), nil
}

func (a amount) money() core.Money {
	if !a.Valid {
		return core.Money{}
	}
	return core.FromDecimal(a.Decimal)
}

// ref is a relation. The ERP may send an id, an [id, "name"] pair, an
// {"id", "name"} object, a bare name, or false.
type ref struct {
	ID   int64
	Name string
}

func refTo(id int64) ref { return ref{ID: id} }

func (r *ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*r = ref{}
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case 'n', 'f':
		return nil
	case '"':
		return json.Unmarshal(b, &r.Name)
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(b, &pair); err != nil {
			return err
		}
		if len(pair) > 0 {
			if err := json.Unmarshal(pair[0], &r.ID); err != nil {
				return err
			}
		}
		if len(pair) > 1 {
			_ = json.Unmarshal(pair[1], &r.Name)
		}
		return nil
	case '{':
		var obj struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		r.ID, r.Name = obj.ID, obj.Name
		return nil
	default:
		return json.Unmarshal(b, &r.ID)
	}
}

func (r ref) MarshalJSON() ([]byte, error) {
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// text accepts a string or false.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if b = bytes.TrimSpace(b); len(b) == 0 || b[0] != '"' {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = text(s)
	return nil
}

// Category is a cashflow category used as a report row key.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

type employeeWire struct {
	ID         int64     `json:"id,omitempty"`
	RUT        text      `json:"rut"`
	Name       text      `json:"name"`
	Position   text      `json:"position"`
	Department ref       `json:"department"`
	HireDate   core.Date `json:"hire_date"`
	BaseSalary amount    `json:"base_salary"`
	Active     *bool     `json:"active,omitempty"`
	CostCenter ref       `json:"cost_center_id"`
}

func employeeFromWire(w employeeWire) core.Employee {
	active := true
	if w.Active != nil {
		active = *w.Active
	}
	return core.Employee{
		ID:           w.ID,
		RUT:          string(w.RUT),
		Name:         string(w.Name),
		Position:     string(w.Position),
		Department:   w.Department.Name,
		HireDate:     w.HireDate,
		BaseSalary:   w.BaseSalary.money(),
		Active:       active,
		CostCenterID: w.CostCenter.ID,
	}
}

func employeeToWire(e core.Employee) employeeWire {
	active := e.Active
	return employeeWire{
		ID:         e.ID,
		RUT:        text(e.RUT),
		Name:       text(e.Name),
		Position:   text(e.Position),
		Department: ref{Name: e.Department},
		HireDate:   e.HireDate,
		BaseSalary: amountOf(e.BaseSalary),
		Active:     &active,
		CostCenter: refTo(e.CostCenterID),
	}
}

// MarshalJSON sends the department by name; the ERP resolves it.
func (w employeeWire) MarshalJSON() ([]byte, error) {
	type alias employeeWire
	return json.Marshal(struct {
		alias
		Department string `json:"department,omitempty"`
	}{alias: alias(w), Department: w.Department.Name})
}

// remuneracionWire carries both the current field names and the legacy
// ones. Reads prefer the current names; writes fill both.
type remuneracionWire struct {
	ID            int64  `json:"id,omitempty"`
	Employee      ref    `json:"employee_id"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	NetSalary     amount `json:"net_salary"`
	SueldoLiquido amount `json:"sueldoLiquido"`
	Advance       amount `json:"advance_payment"`
	Anticipo      amount `json:"anticipo"`
	Status        text   `json:"status"`
	PaymentMethod text   `json:"payment_method"`
	CostCenter    ref    `json:"cost_center_id"`
}

func firstValid(a, b amount) core.Money {
	if a.Valid {
		return a.money()
	}
	return b.money()
}

func remuneracionFromWire(w remuneracionWire) core.Remuneracion {
	return core.Remuneracion{
		ID:            w.ID,
		EmployeeID:    w.Employee.ID,
		EmployeeName:  w.Employee.Name,
		Year:          w.Year,
		Month:         w.Month,
		NetSalary:     firstValid(w.NetSalary, w.SueldoLiquido),
		Advance:       firstValid(w.Advance, w.Anticipo),
		Status:        core.RemuneracionStatus(w.Status),
		PaymentMethod: core.PaymentMethod(w.PaymentMethod),
		CostCenterID:  w.CostCenter.ID,
	}
}

func remuneracionToWire(r core.Remuneracion) remuneracionWire {
	return remuneracionWire{
		ID:            r.ID,
		Employee:      refTo(r.EmployeeID),
		Year:          r.Year,
		Month:         r.Month,
		NetSalary:     amountOf(r.NetSalary),
		SueldoLiquido: amountOf(r.NetSalary),
		Advance:       amountOf(r.Advance),
		Anticipo:      amountOf(r.Advance),
		Status:        text(r.Status),
		PaymentMethod: text(r.PaymentMethod),
		CostCenter:    refTo(r.CostCenterID),
	}
}

// previsionalWire derives month and year from the date on writes.
type previsionalWire struct {
	ID         int64     `json:"id,omitempty"`
	Employee   ref       `json:"employee_id"`
	CostCenter ref       `json:"cost_center_id"`
	Type       text      `json:"type"`
	Amount     amount    `json:"amount"`
	Date       core.Date `json:"date"`
	Month      int       `json:"month,omitempty"`
	Year       int       `json:"year,omitempty"`
}

func previsionalFromWire(w previsionalWire) core.Previsional {
	date := w.Date
	if date.IsZero() && w.Year > 0 && w.Month > 0 {
		date = core.NewDate(w.Year, w.Month, 1)
	}
	return core.Previsional{
		ID:           w.ID,
		EmployeeID:   w.Employee.ID,
		CostCenterID: w.CostCenter.ID,
		Type:         core.PrevisionalType(w.Type),
		Amount:       w.Amount.money(),
		Date:         date,
	}
}

func previsionalToWire(p core.Previsional) previsionalWire {
	year, month := p.Period()
	if p.Date.IsZero() {
		year, month = 0, 0
	}
	return previsionalWire{
		ID:         p.ID,
		Employee:   refTo(p.EmployeeID),
		CostCenter: refTo(p.CostCenterID),
		Type:       text(p.Type),
		Amount:     amountOf(p.Amount),
		Date:       p.Date,
		Month:      month,
		Year:       year,
	}
}

type projectWire struct {
	ID        int64     `json:"id,omitempty"`
	Name      text      `json:"name"`
	Budget    amount    `json:"budget"`
	Status    text      `json:"status"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	Progress  float64   `json:"progress"`
	Income    amount    `json:"total_income"`
	Expenses  amount    `json:"total_expenses"`
	Balance   amount    `json:"balance"`
}

func projectFromWire(w projectWire) core.Project {
	p := core.Project{
		ID:        w.ID,
		Name:      string(w.Name),
		Budget:    w.Budget.money(),
		Status:    core.ProjectStatus(w.Status),
		StartDate: w.StartDate,
		EndDate:   w.EndDate,
		Progress:  int(w.Progress + 0.5),
		Income:    w.Income.money(),
		Expenses:  w.Expenses.money(),
	}
	if w.Balance.Valid {
		p.Balance = w.Balance.money()
	} else {
		p.Balance = core.Money{Amount: p.Income.Amount - p.Expenses.Amount}
	}
	return p
}

// projectToWire omits the totals; the ERP computes them.
func projectToWire(p core.Project) projectWire {
	return projectWire{
		ID:        p.ID,
		Name:      text(p.Name),
		Budget:    amountOf(p.Budget),
		Status:    text(p.Status),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Progress:  float64(p.Progress),
	}
}

type milestoneWire struct {
	ID      int64     `json:"id,omitempty"`
	Project ref       `json:"project_id"`
	Name    text      `json:"name"`
	DueDate core.Date `json:"due_date"`
	Amount  amount    `json:"amount"`
	Done    bool      `json:"done"`
}

func milestoneFromWire(w milestoneWire) core.Milestone {
	return core.Milestone{
		ID:        w.ID,
		ProjectID: w.Project.ID,
		Name:      string(w.Name),
		DueDate:   w.DueDate,
		Amount:    w.Amount.money(),
		Done:      w.Done,
	}
}

func milestoneToWire(m core.Milestone) milestoneWire {
	return milestoneWire{
		ID:      m.ID,
		Project: refTo(m.ProjectID),
		Name:    text(m.Name),
		DueDate: m.DueDate,
		Amount:  amountOf(m.Amount),
		Done:    m.Done,
	}
}

type costCenterWire struct {
	ID   int64 `json:"id,omitempty"`
	Code text  `json:"code"`
	Name text  `json:"name"`
}

func costCenterFromWire(w costCenterWire) core.CostCenter {
	return core.CostCenter{ID: w.ID, Code: string(w.Code), Name: string(w.Name)}
}

func costCenterToWire(c core.CostCenter) costCenterWire {
	return costCenterWire{ID: c.ID, Code: text(c.Code), Name: text(c.Name)}
}

type categoryWire struct {
	ID   int64 `json:"id,omitempty"`
	Name text  `json:"name"`
	Type text  `json:"type"`
}

func categoryFromWire(w categoryWire) Category {
	return Category{ID: w.ID, Name: string(w.Name), Kind: string(w.Type)}
}

func categoryToWire(c Category) categoryWire {
	return categoryWire{ID: c.ID, Name: text(c.Name), Type: text(c.Kind)}
}

// lineWire covers cashflow lines, income, fixed costs, factoring and
// purchase order items. Each endpoint fills a subset of the fields.
type lineWire struct {
	ID          int64     `json:"id,omitempty"`
	Category    ref       `json:"category"`
	Description text      `json:"description"`
	Name        text      `json:"name,omitempty"`
	Date        core.Date `json:"date"`
	Amount      amount    `json:"amount"`
	State       text      `json:"state"`
	CostCenter  ref       `json:"cost_center_id"`
	Project     ref       `json:"project_id"`
	Factoring   text      `json:"factoring_status,omitempty"`
	Kind        text      `json:"kind,omitempty"`
}

func lineFromWire(kind core.LineKind) func(lineWire) core.LineItem {
	return func(w lineWire) core.LineItem {
		desc := string(w.Description)
		if desc == "" {
			desc = string(w.Name)
		}
		k := kind
		switch core.LineKind(strings.ToLower(string(w.Kind))) {
		case core.Income:
			k = core.Income
		case core.Expense:
			k = core.Expense
		}
		return core.LineItem{
			ID:           w.ID,
			Kind:         k,
			Category:     w.Category.Name,
			Description:  desc,
			Date:         w.Date,
			Amount:       w.Amount.money(),
			Status:       string(w.State),
			CostCenterID: w.CostCenter.ID,
			ProjectID:    w.Project.ID,
			Factoring:    core.FactoringStatus(w.Factoring),
		}
	}
}

func lineToWire(l core.LineItem) lineWire {
	return lineWire{
		ID:          l.ID,
		Category:    ref{Name: l.Category},
		Description: text(l.Description),
		Date:        l.Date,
		Amount:      amountOf(l.Amount),
		State:       text(l.Status),
		CostCenter:  refTo(l.CostCenterID),
		Project:     refTo(l.ProjectID),
		Factoring:   text(l.Factoring),
		Kind:        text(l.Kind),
	}
}

// MarshalJSON sends the category by name.
func (w lineWire) MarshalJSON() ([]byte, error) {
	type alias lineWire
	return json.Marshal(struct {
		alias
		Category string `json:"category"`
	}{alias: alias(w), Category: w.Category.Name})
}
