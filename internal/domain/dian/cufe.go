// Package dian contiene las reglas de dominio de facturación electrónica DIAN (Colombia):
// CUFE, código de seguridad del software y validación previa a la transmisión.
package dian

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/shopspring/decimal"
)

// colombia es la zona horaria oficial (UTC-5, sin horario de verano).
var colombia = time.FixedZone("COT", -5*60*60)

// Grupos de impuestos en la cadena CUFE.
const (
	TaxBucketVAT         = "IVA"
	TaxBucketConsumption = "INC"
	TaxBucketOther       = "OTROS"
)

// TaxBuckets totales de impuestos agrupados para la cadena CUFE.
type TaxBuckets struct {
	VAT         decimal.Decimal // código 01
	Consumption decimal.Decimal // código 04
	Other       decimal.Decimal // código 03 (ICA y demás)
}

// ClassifyTax asigna un impuesto a exactamente un grupo según su nombre.
// El orden importa: "IVA" gana sobre cualquier otra coincidencia.
func ClassifyTax(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch {
	case strings.Contains(n, "IVA"), strings.Contains(n, "VAT"):
		return TaxBucketVAT
	case strings.Contains(n, "CONSUMO"), n == "INC":
		return TaxBucketConsumption
	default:
		return TaxBucketOther
	}
}

// PartitionTaxes reparte TaxSummary en IVA / consumo / otros. Cada línea cae en un solo grupo.
func PartitionTaxes(taxes []entity.InvoiceTaxData) TaxBuckets {
	b := TaxBuckets{VAT: decimal.Zero, Consumption: decimal.Zero, Other: decimal.Zero}
	for _, t := range taxes {
		switch ClassifyTax(t.Name) {
		case TaxBucketVAT:
			b.VAT = b.VAT.Add(t.TaxAmount)
		case TaxBucketConsumption:
			b.Consumption = b.Consumption.Add(t.TaxAmount)
		default:
			b.Other = b.Other.Add(t.TaxAmount)
		}
	}
	return b
}

// IssueDate devuelve la fecha de emisión YYYY-MM-DD.
// Con IssueTime informado se usa la fecha tal cual llega; sin él, la fecha en hora Colombia.
func IssueDate(inv *entity.InvoiceData) string {
	if strings.TrimSpace(inv.IssueTime) != "" {
		return inv.IssueDate.Format("2006-01-02")
	}
	return inv.IssueDate.In(colombia).Format("2006-01-02")
}

// IssueTime devuelve la hora de emisión HH:mm:ss-05:00.
// Una hora inválida se devuelve sin cambios; Validate y CalculateCUFE la rechazan antes.
func IssueTime(inv *entity.InvoiceData) string {
	raw := strings.TrimSpace(inv.IssueTime)
	if raw == "" {
		return inv.IssueDate.In(colombia).Format("15:04:05-07:00")
	}
	if normalized, err := NormalizeIssueTime(raw); err == nil {
		return normalized
	}
	return raw
}

// NormalizeIssueTime acepta "15:04:05" (se asume -05:00) o "15:04:05-07:00".
func NormalizeIssueTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("15:04:05-07:00", raw); err == nil {
		return t.Format("15:04:05-07:00"), nil
	}
	if t, err := time.Parse("15:04:05", raw); err == nil {
		return t.Format("15:04:05") + "-05:00", nil
	}
	return "", fmt.Errorf("%w: hora de emisión %q inválida, se espera HH:mm:ss o HH:mm:ss-05:00", domain.ErrValidation, raw)
}

// CufeParams arma los parámetros del CUFE desde la factura y la configuración.
func CufeParams(inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig) *dian.CufeParams {
	buckets := PartitionTaxes(inv.TaxSummary)
	return &dian.CufeParams{
		NumFac:    inv.Number,
		FecFac:    IssueDate(inv),
		HorFac:    IssueTime(inv),
		ValFac:    inv.Subtotal,
		ValImp1:   buckets.VAT,
		ValImp2:   buckets.Consumption,
		ValImp3:   buckets.Other,
		ValTot:    inv.Total,
		NitOFE:    dian.BaseNIT(cfg.Issuer.NIT),
		NumAdq:    dian.BaseNIT(inv.Customer.TaxID),
		ClTec:     cfg.TechnicalKey,
		TipoAmbie: cfg.EnvironmentCode(),
	}
}

// CalculateCUFE calcula el CUFE de la factura. Función pura: misma entrada, mismo hash.
// Sin clave técnica devuelve "SIMULATED-CUFE-" + número; el orquestador decide si eso es aceptable.
func CalculateCUFE(inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig) (string, error) {
	if inv == nil || cfg == nil {
		return "", fmt.Errorf("%w: factura y configuración son obligatorias", domain.ErrValidation)
	}
	if strings.TrimSpace(inv.IssueTime) != "" {
		if _, err := NormalizeIssueTime(inv.IssueTime); err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(cfg.TechnicalKey) == "" {
		return dian.SimulatedCufePrefix + inv.Number, nil
	}
	cufe, err := dian.NewCufeCalculatorService().Calculate(CufeParams(inv, cfg))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return cufe, nil
}
