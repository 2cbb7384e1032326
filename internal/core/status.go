package core

// Variant is the visual style of a status badge.
type Variant string

const (
	VariantNeutral Variant = "neutral"
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// StatusDisplay is the label and badge variant shown for an enum value.
type StatusDisplay struct {
	Label   string  `json:"label"`
	Variant Variant `json:"variant"`
}

// UnknownStatus is shown for backend values the client does not know.
var UnknownStatus = StatusDisplay{Label: "Borrador", Variant: VariantNeutral}

type (
	RemuneracionStatus string
	ProjectStatus      string
	PaymentMethod      string
	PrevisionalType    string
	FactoringStatus    string
)

const (
	RemuneracionPending   RemuneracionStatus = "pending"
	RemuneracionApproved  RemuneracionStatus = "approved"
	RemuneracionPaid      RemuneracionStatus = "paid"
	RemuneracionRejected  RemuneracionStatus = "rejected"
	RemuneracionCancelled RemuneracionStatus = "cancelled"
)

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

const (
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCheck    PaymentMethod = "check"
	PaymentCash     PaymentMethod = "cash"
	PaymentOther    PaymentMethod = "other"
)

const (
	PrevisionalAFP            PrevisionalType = "afp"
	PrevisionalIsapre         PrevisionalType = "isapre"
	PrevisionalIsapre7        PrevisionalType = "isapre_7"
	PrevisionalSeguroCesantia PrevisionalType = "seguro_cesantia"
	PrevisionalMutual         PrevisionalType = "mutual"
)

const (
	FactoringPending   FactoringStatus = "pending"
	FactoringFactored  FactoringStatus = "factored"
	FactoringCollected FactoringStatus = "collected"
)

var remuneracionDisplay = map[RemuneracionStatus]StatusDisplay{
	RemuneracionPending:   {"Pendiente", VariantWarning},
	RemuneracionApproved:  {"Aprobado", VariantInfo},
	RemuneracionPaid:      {"Pagado", VariantSuccess},
	RemuneracionRejected:  {"Rechazado", VariantError},
	RemuneracionCancelled: {"Cancelado", VariantNeutral},
}

var projectDisplay = map[ProjectStatus]StatusDisplay{
	ProjectDraft:     {"Borrador", VariantNeutral},
	ProjectActive:    {"Activo", VariantSuccess},
	ProjectOnHold:    {"En pausa", VariantWarning},
	ProjectCompleted: {"Completado", VariantInfo},
	ProjectCancelled: {"Cancelado", VariantError},
}

var paymentDisplay = map[PaymentMethod]StatusDisplay{
	PaymentTransfer: {"Transferencia", VariantNeutral},
	PaymentCheck:    {"Cheque", VariantNeutral},
	PaymentCash:     {"Efectivo", VariantNeutral},
	PaymentOther:    {"Otro", VariantNeutral},
}

var previsionalDisplay = map[PrevisionalType]StatusDisplay{
	PrevisionalAFP:            {"AFP", VariantInfo},
	PrevisionalIsapre:         {"Isapre", VariantInfo},
	PrevisionalIsapre7:        {"Isapre 7%", VariantInfo},
	PrevisionalSeguroCesantia: {"Seguro de Cesantía", VariantInfo},
	PrevisionalMutual:         {"Mutual", VariantInfo},
}

var factoringDisplay = map[FactoringStatus]StatusDisplay{
	FactoringPending:   {"Pendiente", VariantWarning},
	FactoringFactored:  {"Factorizado", VariantInfo},
	FactoringCollected: {"Cobrado", VariantSuccess},
}

func display[K comparable](m map[K]StatusDisplay, k K) StatusDisplay {
	if d, ok := m[k]; ok {
		return d
	}
	return UnknownStatus
}

func (s RemuneracionStatus) Display() StatusDisplay {
	return display(remuneracionDisplay, s)
}

func (s RemuneracionStatus) Known() bool {
	_, ok := remuneracionDisplay[s]
	return ok
}

func (s ProjectStatus) Display() StatusDisplay {
	return display(projectDisplay, s)
}

func (s ProjectStatus) Known() bool {
	_, ok := projectDisplay[s]
	return ok
}

func (p PaymentMethod) Display() StatusDisplay {
	return display(paymentDisplay, p)
}

func (p PaymentMethod) Known() bool {
	_, ok := paymentDisplay[p]
	return ok
}

func (t PrevisionalType) Display() StatusDisplay {
	return display(previsionalDisplay, t)
}

func (t PrevisionalType) Known() bool {
	_, ok := previsionalDisplay[t]
	return ok
}

func (s FactoringStatus) Display() StatusDisplay {
	return display(factoringDisplay, s)
}

func (s FactoringStatus) Known() bool {
	_, ok := factoringDisplay[s]
	return ok
}

// Ordered value lists, used for select options.

func RemuneracionStatuses() []RemuneracionStatus {
	return []RemuneracionStatus{RemuneracionPending, RemuneracionApproved, RemuneracionPaid, RemuneracionRejected, RemuneracionCancelled}
}

func ProjectStatuses() []ProjectStatus {
	return []ProjectStatus{ProjectDraft, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled}
}

func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentTransfer, PaymentCheck, PaymentCash, PaymentOther}
}

func PrevisionalTypes() []PrevisionalType {
	return []PrevisionalType{PrevisionalAFP, PrevisionalIsapre, PrevisionalIsapre7, PrevisionalSeguroCesantia, PrevisionalMutual}
}

func FactoringStatuses() []FactoringStatus {
	return []FactoringStatus{FactoringPending, FactoringFactored, FactoringCollected}
}
