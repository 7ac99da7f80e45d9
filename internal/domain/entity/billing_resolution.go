package entity

import "time"

// BillingResolution representa la resolución de facturación autorizada por la DIAN.
// Es obligatoria en el nodo <sts:DianExtensions> del XML UBL 2.1.
type BillingResolution struct {
	Number    string    `json:"number"`     // Número de resolución (ej: "18760000001")
	Prefix    string    `json:"prefix"`     // Prefijo autorizado (ej: "SETP", "FE")
	RangeFrom int64     `json:"range_from"` // Número inicial del rango autorizado
	RangeTo   int64     `json:"range_to"`   // Número final del rango autorizado
	ValidFrom time.Time `json:"valid_from"` // Fecha de inicio de vigencia
	ValidTo   time.Time `json:"valid_to"`   // Fecha de vencimiento
}

// Missing devuelve el nombre del primer campo obligatorio ausente, o "" si está completa.
func (r BillingResolution) Missing() string {
	switch {
	case r.Number == "":
		return "resolution.number"
	case r.RangeTo <= 0 || r.RangeFrom > r.RangeTo:
		return "resolution.range_from/range_to"
	case r.ValidFrom.IsZero():
		return "resolution.valid_from"
	case r.ValidTo.IsZero():
		return "resolution.valid_to"
	}
	return ""
}
