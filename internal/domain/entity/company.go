package entity

// Issuer identifica al facturador electrónico (AccountingSupplierParty).
// Llega siempre dentro de ElectronicBillingConfig; el motor no lee variables de entorno.
type Issuer struct {
	NIT          string `json:"nit"` // con o sin dígito de verificación
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	TaxLevelCode string `json:"tax_level_code,omitempty"` // O-13, O-47, R-99-PN...
}
