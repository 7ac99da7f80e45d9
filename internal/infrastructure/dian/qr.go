package dian

import (
	"strings"

	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
)

// QRContent arma el texto del código QR (sts:QRCode y representación gráfica).
// Un campo por línea, con la URL de consulta en el catálogo DIAN al final.
func QRContent(inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) string {
	buckets := domaindian.PartitionTaxes(inv.TaxSummary)
	return strings.Join([]string{
		"NumFac: " + inv.Number,
		"FecFac: " + domaindian.IssueDate(inv),
		"HorFac: " + domaindian.IssueTime(inv),
		"NitFac: " + dian.BaseNIT(cfg.Issuer.NIT),
		"DocAdq: " + dian.BaseNIT(inv.Customer.TaxID),
		"ValFac: " + dian.FormatAmount(inv.Subtotal),
		"ValIva: " + dian.FormatAmount(buckets.VAT),
		"ValOtroIm: " + dian.FormatAmount(buckets.Consumption.Add(buckets.Other)),
		"ValTolFac: " + dian.FormatAmount(inv.Total),
		"CUFE: " + cufe,
		"QRCode: " + dian.VerificationURL(cufe, cfg.IsProduction()),
	}, "\n")
}
