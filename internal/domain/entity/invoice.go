package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de documento (Anexo 1.9 - Tabla 1). El motor transmite facturas de venta.
const (
	DocumentTypeInvoice       = "01" // Factura electrónica de venta
	DocumentTypeExportInvoice = "02" // Factura de exportación
	DocumentTypeContingency   = "03" // Factura de contingencia facturador
)

// InvoiceTaxData representa una línea de impuesto, por ítem o agregada por tarifa.
// TaxAmount ≈ BaseAmount * Rate / 100.
type InvoiceTaxData struct {
	Name       string          `json:"name"` // IVA, INC, ICA, ...
	Rate       decimal.Decimal `json:"rate"` // porcentaje (19 = 19 %)
	BaseAmount decimal.Decimal `json:"base_amount"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	TaxRateID  string          `json:"tax_rate_id,omitempty"` // id de la tarifa en el proveedor (Alegra)
}

// InvoiceCustomer adquiriente de la factura.
type InvoiceCustomer struct {
	TaxID        string `json:"tax_id"` // NIT (con o sin DV) o cédula
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	IsCompany    bool   `json:"is_company"`               // true = persona jurídica
	TaxRegime    string `json:"tax_regime,omitempty"`     // régimen tributario declarado
	TaxLevelCode string `json:"tax_level_code,omitempty"` // responsabilidad fiscal (O-13, R-99-PN, ...)
}

// InvoiceItem línea de la factura con los totales ya calculados por el sistema de origen.
type InvoiceItem struct {
	Code        string           `json:"code,omitempty"`
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    decimal.Decimal  `json:"discount"`
	Subtotal    decimal.Decimal  `json:"subtotal"`
	UnitCode    string           `json:"unit_code,omitempty"` // unidad DIAN (94, KGM, ...)
	Taxes       []InvoiceTaxData `json:"taxes,omitempty"`
}

// InvoiceData es la foto inmutable de la factura al momento de transmitirla.
// Total = Subtotal - Discount + Tax; Subtotal = Σ Items.Subtotal; Tax = Σ TaxSummary.TaxAmount.
type InvoiceData struct {
	ID               string           `json:"id"`
	Number           string           `json:"number"` // prefijo + consecutivo (ej: SETP990000001)
	Prefix           string           `json:"prefix"`
	Consecutive      int64            `json:"consecutive"`
	IssueDate        time.Time        `json:"issue_date"`
	IssueTime        string           `json:"issue_time,omitempty"` // HH:mm:ss o HH:mm:ss-05:00; vacío = hora de IssueDate
	DueDate          *time.Time       `json:"due_date,omitempty"`
	DocumentType     string           `json:"document_type,omitempty"`
	PaymentMeansCode string           `json:"payment_means_code,omitempty"` // 10 efectivo, 47 transferencia, ...; vacío = 10
	Customer         InvoiceCustomer  `json:"customer"`
	Items            []InvoiceItem    `json:"items"`
	TaxSummary       []InvoiceTaxData `json:"tax_summary"`
	Subtotal         decimal.Decimal  `json:"subtotal"`
	Discount         decimal.Decimal  `json:"discount"`
	Tax              decimal.Decimal  `json:"tax"`
	Total            decimal.Decimal  `json:"total"`
	Notes            string           `json:"notes,omitempty"`
}

// KnownDocumentType indica si el código es un tipo de factura que el motor sabe transmitir.
func KnownDocumentType(code string) bool {
	switch code {
	case DocumentTypeInvoice, DocumentTypeExportInvoice, DocumentTypeContingency:
		return true
	}
	return false
}

// DocumentTypeOrDefault devuelve el tipo de documento, 01 si no viene informado.
func (inv *InvoiceData) DocumentTypeOrDefault() string {
	if inv.DocumentType == "" {
		return DocumentTypeInvoice
	}
	return inv.DocumentType
}
