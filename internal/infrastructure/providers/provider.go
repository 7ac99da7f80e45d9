// Package providers define el contrato común de las estrategias de transmisión
// (DIAN directo, gateway FEG, Alegra, proveedor genérico) y el registro que las selecciona.
package providers

import (
	"context"

	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
)

// Provider estrategia de transmisión seleccionada por ElectronicBillingConfig.Provider.
//
// Una respuesta del proveedor (aceptada, rechazada o en proceso) se devuelve como
// *ElectronicBillingResponse con error nil. El error queda para fallas locales o de red,
// envueltas con los sentinelas de domain.
type Provider interface {
	Name() string
	Transmit(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) (*entity.ElectronicBillingResponse, error)
}

// StatusChecker lo implementan los proveedores que permiten consultar un envío por su track id.
type StatusChecker interface {
	CheckStatus(ctx context.Context, trackID string, cfg *entity.ElectronicBillingConfig) (*entity.ElectronicBillingResponse, error)
}
