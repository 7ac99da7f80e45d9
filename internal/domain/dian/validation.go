package dian

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/shopspring/decimal"
)

// tolerancia para comparar totales ya redondeados por el sistema de origen.
var tolerance = decimal.NewFromFloat(0.01)

// ValidationResult resultado de la validación previa a la transmisión.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err devuelve nil si la factura es válida; si no, ErrValidation unido a cada error.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := []error{domain.ErrValidation}
	for _, msg := range r.Errors {
		errs = append(errs, errors.New(msg))
	}
	return errors.Join(errs...)
}

// Validate revisa los campos mínimos para transmitir. Sin efectos secundarios.
func Validate(inv *entity.InvoiceData) ValidationResult {
	if inv == nil {
		return ValidationResult{Valid: false, Errors: []string{"la factura es obligatoria"}}
	}
	errs := make([]string, 0)
	if strings.TrimSpace(inv.Number) == "" {
		errs = append(errs, "el número de factura es obligatorio")
	}
	if strings.TrimSpace(inv.Customer.TaxID) == "" {
		errs = append(errs, "el NIT o documento del cliente es obligatorio")
	}
	if strings.TrimSpace(inv.Customer.Name) == "" {
		errs = append(errs, "el nombre del cliente es obligatorio")
	}
	if len(inv.Items) == 0 {
		errs = append(errs, "la factura debe tener al menos un ítem")
	}
	if !inv.Total.IsPositive() {
		errs = append(errs, "el total de la factura debe ser mayor a cero")
	}
	if inv.DocumentType != "" && !entity.KnownDocumentType(inv.DocumentType) {
		errs = append(errs, fmt.Sprintf("tipo de documento %q no soportado", inv.DocumentType))
	}
	if strings.TrimSpace(inv.IssueTime) != "" {
		if _, err := NormalizeIssueTime(inv.IssueTime); err != nil {
			errs = append(errs, "la hora de emisión debe tener el formato HH:mm:ss o HH:mm:ss-05:00")
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ConsistencyIssues reporta incoherencias aritméticas de la factura. No bloquea la transmisión:
// los totales vienen calculados desde el origen y la DIAN los valida de nuevo.
func ConsistencyIssues(inv *entity.InvoiceData) []string {
	if inv == nil {
		return nil
	}
	var issues []string

	sumSubtotal := decimal.Zero
	for _, it := range inv.Items {
		sumSubtotal = sumSubtotal.Add(it.Subtotal)
	}
	if !withinTolerance(sumSubtotal, inv.Subtotal) {
		issues = append(issues, fmt.Sprintf("subtotal (%s) no coincide con la suma de ítems (%s)",
			dian.FormatAmount(inv.Subtotal), dian.FormatAmount(sumSubtotal)))
	}

	sumTax := decimal.Zero
	for _, t := range inv.TaxSummary {
		sumTax = sumTax.Add(t.TaxAmount)
		expected := t.BaseAmount.Mul(t.Rate).Div(decimal.NewFromInt(100))
		if !withinTolerance(expected, t.TaxAmount) {
			issues = append(issues, fmt.Sprintf("impuesto %s %s%%: valor %s no coincide con base × tarifa (%s)",
				t.Name, t.Rate.String(), dian.FormatAmount(t.TaxAmount), dian.FormatAmount(expected)))
		}
	}
	if !withinTolerance(sumTax, inv.Tax) {
		issues = append(issues, fmt.Sprintf("impuestos (%s) no coinciden con el resumen de impuestos (%s)",
			dian.FormatAmount(inv.Tax), dian.FormatAmount(sumTax)))
	}

	expectedTotal := inv.Subtotal.Sub(inv.Discount).Add(inv.Tax)
	if !withinTolerance(expectedTotal, inv.Total) {
		issues = append(issues, fmt.Sprintf("total (%s) no coincide con subtotal - descuento + impuestos (%s)",
			dian.FormatAmount(inv.Total), dian.FormatAmount(expectedTotal)))
	}

	// Cliente jurídico con DV informado: el DV debe ser válido.
	if inv.Customer.IsCompany && strings.Contains(inv.Customer.TaxID, "-") {
		if err := dian.ValidateNITVerificationDigit(inv.Customer.TaxID); err != nil {
			issues = append(issues, fmt.Sprintf("cliente NIT: %v", err))
		}
	}
	return issues
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
