// Package custom es el punto de extensión para proveedores HTTP genéricos:
// recibe el mismo JSON que el gateway FEG autenticado con X-API-Key.
package custom

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"

	"github.com/rs/zerolog"
)

var _ providers.Provider = (*Adapter)(nil)

// Adapter proveedor CUSTOM.
type Adapter struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// New construye el adaptador. httpClient nil usa providers.NewHTTPClient().
func New(httpClient *http.Client, log zerolog.Logger) *Adapter {
	if httpClient == nil {
		httpClient = providers.NewHTTPClient()
	}
	return &Adapter{httpClient: httpClient, log: log}
}

// Name código del proveedor.
func (a *Adapter) Name() string { return entity.ProviderCustom }

// Transmit exige api_url y api_key antes de cualquier llamada de red.
func (a *Adapter) Transmit(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) (*entity.ElectronicBillingResponse, error) {
	var missing []string
	if strings.TrimSpace(cfg.APIURL) == "" {
		missing = append(missing, "api_url")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s obligatorio para el proveedor CUSTOM", domain.ErrConfiguration, strings.Join(missing, " y "))
	}

	resp, err := providers.DoJSON(ctx, a.httpClient, http.MethodPost, strings.TrimSpace(cfg.APIURL),
		map[string]string{"X-API-Key": cfg.APIKey},
		providers.NewGatewayRequest(inv, cfg, cufe))
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("invoice", inv.Number).Int("http_status", resp.StatusCode).Msg("custom: respuesta recibida")

	if !resp.OK() {
		return nil, providers.HTTPError("proveedor CUSTOM", resp)
	}
	gr, ok := providers.ParseGatewayResponse(resp.Body)
	if !ok {
		return nil, fmt.Errorf("%w: proveedor CUSTOM devolvió un cuerpo no JSON: %s", domain.ErrTransport, providers.Truncate(string(resp.Body), 200))
	}
	return gr.ToResponse(cufe, resp.Body), nil
}
