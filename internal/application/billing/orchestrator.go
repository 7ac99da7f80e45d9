package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/rs/zerolog"
)

// DefaultTimeout plazo por transmisión cuando no se configura otro.
const DefaultTimeout = 30 * time.Second

// Orchestrator punto de entrada del motor de transmisión:
//
//	proveedor conocido → validación → CUFE → proveedor (con plazo) → respuesta normalizada
//
// Nunca devuelve error ni entra en pánico: toda falla queda en ElectronicBillingResponse.
// No guarda estado entre llamadas; el bloqueo por factura (idempotencia) es del llamador.
type Orchestrator struct {
	registry *providers.Registry
	timeout  time.Duration
	log      zerolog.Logger
}

// Option configura el orquestador.
type Option func(*Orchestrator)

// WithTimeout fija el plazo por transmisión; <= 0 conserva DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// NewOrchestrator construye el orquestador sobre el registro de proveedores.
func NewOrchestrator(registry *providers.Registry, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{registry: registry, timeout: DefaultTimeout, log: log}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendToElectronicBilling transmite la factura con el proveedor de cfg.Provider.
func (o *Orchestrator) SendToElectronicBilling(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig) (resp *entity.ElectronicBillingResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("facturación electrónica: pánico recuperado")
			resp = failure(fmt.Errorf("error interno: %v", r), "")
		}
	}()

	if cfg == nil {
		return failure(fmt.Errorf("%w: config es obligatoria", domain.ErrConfiguration), "")
	}
	provider, err := o.registry.Get(cfg.Provider)
	if err != nil {
		return failure(err, "")
	}

	log := o.log.With().Str("provider", provider.Name()).Logger()
	if inv != nil {
		log = log.With().Str("invoice", inv.Number).Logger()
	}

	result := domaindian.Validate(inv)
	if !result.Valid {
		log.Warn().Strs("errors", result.Errors).Msg("facturación electrónica: factura inválida")
		return &entity.ElectronicBillingResponse{
			Success:   false,
			Message:   "La factura no es válida para transmisión",
			Errors:    result.Errors,
			ErrorKind: entity.ErrorKindValidation,
		}
	}
	for _, issue := range domaindian.ConsistencyIssues(inv) {
		log.Warn().Str("issue", issue).Msg("facturación electrónica: inconsistencia en totales")
	}

	cufe, err := domaindian.CalculateCUFE(inv, cfg)
	if err != nil {
		return failure(err, "")
	}
	if dian.IsSimulatedCufe(cufe) {
		if provider.Name() != entity.ProviderDIANDirect {
			// Los agregadores calculan y devuelven su propio CUFE.
			cufe = ""
		} else if cfg.IsProduction() {
			return failure(fmt.Errorf("%w: technical_key es obligatoria en producción; no se envía un CUFE simulado", domain.ErrConfiguration), cufe)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err = o.dispatch(ctx, func(ctx context.Context) (*entity.ElectronicBillingResponse, error) {
		return provider.Transmit(ctx, inv, cfg, cufe)
	})
	if err != nil {
		resp = failure(err, cufe)
	} else if resp.CUFE == "" {
		resp.CUFE = cufe
	}

	log.Info().
		Bool("success", resp.Success).
		Str("status", resp.Status).
		Str("error_kind", resp.ErrorKind).
		Str("track_id", resp.TrackID).
		Dur("elapsed", time.Since(start)).
		Msg("facturación electrónica: transmisión finalizada")
	return resp
}

// CheckStatus consulta el estado de un envío en proveedores que lo soportan (DIAN directo).
func (o *Orchestrator) CheckStatus(ctx context.Context, trackID string, cfg *entity.ElectronicBillingConfig) (resp *entity.ElectronicBillingResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("facturación electrónica: pánico recuperado en consulta de estado")
			resp = failure(fmt.Errorf("error interno: %v", r), "")
		}
	}()

	if cfg == nil {
		return failure(fmt.Errorf("%w: config es obligatoria", domain.ErrConfiguration), "")
	}
	if strings.TrimSpace(trackID) == "" {
		return failure(fmt.Errorf("%w: track_id es obligatorio", domain.ErrValidation), "")
	}
	provider, err := o.registry.Get(cfg.Provider)
	if err != nil {
		return failure(err, "")
	}
	checker, ok := provider.(providers.StatusChecker)
	if !ok {
		return failure(fmt.Errorf("%w: el proveedor %s no permite consultar estado", domain.ErrConfiguration, provider.Name()), "")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err = o.dispatch(ctx, func(ctx context.Context) (*entity.ElectronicBillingResponse, error) {
		return checker.CheckStatus(ctx, trackID, cfg)
	})
	if err != nil {
		resp = failure(err, "")
		resp.TrackID = trackID
	}
	return resp
}

type call func(ctx context.Context) (*entity.ElectronicBillingResponse, error)

type outcome struct {
	resp *entity.ElectronicBillingResponse
	err  error
}

// dispatch ejecuta fn en su propia goroutine: un proveedor que ignore el ctx no bloquea
// al llamador más allá del plazo, y un pánico dentro del proveedor se convierte en error.
func (o *Orchestrator) dispatch(ctx context.Context, fn call) (*entity.ElectronicBillingResponse, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.log.Error().Interface("panic", r).Msg("facturación electrónica: pánico en proveedor")
				done <- outcome{err: fmt.Errorf("error interno del proveedor: %v", r)}
			}
		}()
		resp, err := fn(ctx)
		if err == nil && resp == nil {
			err = fmt.Errorf("%w: el proveedor no devolvió respuesta", domain.ErrTransport)
		}
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, ctx.Err())
	}
}

// failure convierte un error en respuesta, clasificado con errors.Is.
// Transporte y plazo vencido quedan PENDING: el documento pudo haber llegado.
func failure(err error, cufe string) *entity.ElectronicBillingResponse {
	resp := &entity.ElectronicBillingResponse{
		Success: false,
		CUFE:    cufe,
		Errors:  []string{err.Error()},
	}
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		resp.ErrorKind = entity.ErrorKindConfiguration
		resp.Message = "Proveedor de facturación electrónica no configurado"
	case errors.Is(err, domain.ErrValidation):
		resp.ErrorKind = entity.ErrorKindValidation
		resp.Message = "La factura no es válida para transmisión"
	case errors.Is(err, domain.ErrConfiguration):
		resp.ErrorKind = entity.ErrorKindConfiguration
		resp.Message = "Configuración de facturación electrónica incompleta"
	case errors.Is(err, domain.ErrSigning):
		resp.ErrorKind = entity.ErrorKindSigning
		resp.Message = "No se pudo firmar el documento"
	case errors.Is(err, domain.ErrRejected):
		resp.ErrorKind = entity.ErrorKindRejection
		resp.Status = entity.StatusRejected
		resp.Message = "Documento rechazado por el proveedor"
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		resp.ErrorKind = entity.ErrorKindTransport
		resp.Status = entity.StatusPending
		resp.Message = "Tiempo de espera agotado; el documento pudo haber sido recibido, consulte el estado antes de reintentar"
	case errors.Is(err, domain.ErrTransport):
		resp.ErrorKind = entity.ErrorKindTransport
		resp.Status = entity.StatusPending
		resp.Message = "Error de comunicación con el proveedor"
	default:
		resp.Message = "Error inesperado en la transmisión"
	}
	return resp
}
