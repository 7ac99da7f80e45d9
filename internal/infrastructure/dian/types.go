// Package dian implementa la integración directa con la DIAN: XML UBL 2.1, empaquetado ZIP,
// cliente SOAP y contenido del QR.
package dian

import (
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
)

// InvoiceBuildContext contexto con todos los datos necesarios para construir el XML de la factura.
type InvoiceBuildContext struct {
	Invoice *entity.InvoiceData
	Config  *entity.ElectronicBillingConfig
	CUFE    string
}

// taxGroup agrupa las líneas de TaxSummary de un mismo esquema tributario (un cac:TaxTotal).
type taxGroup struct {
	code  string
	name  string
	lines []entity.InvoiceTaxData
}
