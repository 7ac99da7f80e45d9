// Package feg transmite facturas al gateway FEG (API REST propia con token Bearer),
// que se encarga de firmar y enviar a la DIAN.
package feg

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

// Adapter proveedor FEG.
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
func (a *Adapter) Name() string { return entity.ProviderFEG }

// Transmit hace POST del JSON {invoice, issuer, resolution, environment} a FEGURL.
func (a *Adapter) Transmit(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) (*entity.ElectronicBillingResponse, error) {
	url := strings.TrimSpace(cfg.FEGURL)
	if url == "" {
		return nil, fmt.Errorf("%w: feg_url es obligatorio para el proveedor FEG", domain.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.FEGToken) == "" {
		return nil, fmt.Errorf("%w: feg_token es obligatorio para el proveedor FEG", domain.ErrConfiguration)
	}

	resp, err := providers.DoJSON(ctx, a.httpClient, http.MethodPost, url,
		map[string]string{"Authorization": providers.BearerAuth(cfg.FEGToken)},
		providers.NewGatewayRequest(inv, cfg, cufe))
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("invoice", inv.Number).Int("http_status", resp.StatusCode).Msg("feg: respuesta recibida")

	gr, ok := providers.ParseGatewayResponse(resp.Body)
	if !resp.OK() {
		// Un 4xx con cuerpo del gateway es un rechazo con sus motivos.
		if ok && resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
			gr.Success = false
			return gr.ToResponse(cufe, resp.Body), nil
		}
		return nil, providers.HTTPError("FEG", resp)
	}
	if !ok {
		return nil, fmt.Errorf("%w: FEG devolvió un cuerpo no JSON: %s", domain.ErrTransport, providers.Truncate(string(resp.Body), 200))
	}
	return gr.ToResponse(cufe, resp.Body), nil
}
