package dian

import (
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"
)

// SoftwareSecurityCode calcula sts:SoftwareSecurityCode para la factura.
// Requiere SoftwareID y SoftwarePIN; es un hash distinto del CUFE.
func SoftwareSecurityCode(inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig) (string, error) {
	if strings.TrimSpace(cfg.SoftwareID) == "" {
		return "", fmt.Errorf("%w: software_id es obligatorio", domain.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.SoftwarePIN) == "" {
		return "", fmt.Errorf("%w: software_pin es obligatorio", domain.ErrConfiguration)
	}
	return dian.SoftwareSecurityCode(cfg.SoftwareID, cfg.SoftwarePIN, inv.Number), nil
}
