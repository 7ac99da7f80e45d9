// Package alegra transmite facturas por medio de Alegra (SaaS): busca o crea el contacto,
// crea la factura solicitando el timbrado electrónico y mapea el estado del timbre.
package alegra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL API v1 de Alegra.
const DefaultBaseURL = "https://api.alegra.com/api/v1"

var _ providers.Provider = (*Adapter)(nil)

// Adapter proveedor ALEGRA.
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
func (a *Adapter) Name() string { return entity.ProviderAlegra }

// session credenciales y URL base de una transmisión.
type session struct {
	baseURL string
	headers map[string]string
}

// Transmit: contacto (buscar o crear) → ítems → factura con timbre → estado del timbre.
// Cualquier paso fallido corta el flujo con su error.
func (a *Adapter) Transmit(ctx context.Context, inv *entity.InvoiceData, cfg *entity.ElectronicBillingConfig, cufe string) (*entity.ElectronicBillingResponse, error) {
	s, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	contactID, err := a.ensureContact(ctx, s, inv.Customer)
	if err != nil {
		return nil, err
	}

	created, raw, err := a.createInvoice(ctx, s, buildInvoiceRequest(inv, contactID))
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Str("invoice", inv.Number).
		Str("alegra_id", created.ID.String()).
		Str("contact_id", contactID).
		Msg("alegra: factura creada")

	return toResponse(created, cufe, cfg.IsProduction(), raw), nil
}

func newSession(cfg *entity.ElectronicBillingConfig) (*session, error) {
	var missing []string
	if strings.TrimSpace(cfg.AlegraEmail) == "" {
		missing = append(missing, "alegra_email")
	}
	if strings.TrimSpace(cfg.AlegraToken) == "" {
		missing = append(missing, "alegra_token")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s obligatorio para el proveedor ALEGRA", domain.ErrConfiguration, strings.Join(missing, " y "))
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.AlegraBaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &session{
		baseURL: base,
		headers: map[string]string{"Authorization": providers.BasicAuth(cfg.AlegraEmail, cfg.AlegraToken)},
	}, nil
}

// ensureContact devuelve el id del contacto con la identificación del cliente; si no existe lo crea.
func (a *Adapter) ensureContact(ctx context.Context, s *session, c entity.InvoiceCustomer) (string, error) {
	number := dian.BaseNIT(c.TaxID)
	if number == "" {
		return "", fmt.Errorf("%w: el cliente no tiene identificación", domain.ErrValidation)
	}

	resp, err := providers.DoJSON(ctx, a.httpClient, http.MethodGet,
		s.baseURL+"/contacts?identification="+url.QueryEscape(number), s.headers, nil)
	if err != nil {
		return "", fmt.Errorf("alegra: buscar contacto: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("alegra: buscar contacto: %w", providers.HTTPError("Alegra", resp))
	}
	var found []contact
	if err := json.Unmarshal(resp.Body, &found); err != nil {
		return "", fmt.Errorf("%w: alegra: respuesta de contactos ilegible: %v", domain.ErrTransport, err)
	}
	for _, ct := range found {
		if ct.ID.valid() {
			a.log.Debug().Str("contact_id", ct.ID.String()).Msg("alegra: contacto existente")
			return ct.ID.String(), nil
		}
	}

	resp, err = providers.DoJSON(ctx, a.httpClient, http.MethodPost, s.baseURL+"/contacts", s.headers, buildContactRequest(c))
	if err != nil {
		return "", fmt.Errorf("alegra: crear contacto: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("alegra: crear contacto: %w", providers.HTTPError("Alegra", resp))
	}
	var created contact
	if err := json.Unmarshal(resp.Body, &created); err != nil || !created.ID.valid() {
		return "", fmt.Errorf("%w: alegra: el contacto creado no trae id", domain.ErrTransport)
	}
	a.log.Info().Str("contact_id", created.ID.String()).Msg("alegra: contacto creado")
	return created.ID.String(), nil
}

func (a *Adapter) createInvoice(ctx context.Context, s *session, req *createInvoiceRequest) (*invoiceResponse, []byte, error) {
	resp, err := providers.DoJSON(ctx, a.httpClient, http.MethodPost, s.baseURL+"/invoices", s.headers, req)
	if err != nil {
		return nil, nil, fmt.Errorf("alegra: crear factura: %w", err)
	}
	if !resp.OK() {
		return nil, nil, fmt.Errorf("alegra: crear factura: %w", providers.HTTPError("Alegra", resp))
	}
	var created invoiceResponse
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, nil, fmt.Errorf("%w: alegra: respuesta de factura ilegible: %v", domain.ErrTransport, err)
	}
	return &created, resp.Body, nil
}

// buildContactRequest persona jurídica → NIT con DV, régimen común; natural → CC, régimen simplificado.
func buildContactRequest(c entity.InvoiceCustomer) *createContactRequest {
	req := &createContactRequest{
		Name:         c.Name,
		Email:        c.Email,
		PhonePrimary: c.Phone,
		Type:         []string{"client"},
	}
	if c.IsCompany {
		req.IdentificationObject = identificationObject{Type: identificationNIT, Number: dian.BaseNIT(c.TaxID), DV: dian.CheckDigit(c.TaxID)}
		req.KindOfPerson = kindLegalEntity
		req.Regime = regimeCommon
	} else {
		req.IdentificationObject = identificationObject{Type: identificationCC, Number: dian.BaseNIT(c.TaxID)}
		req.KindOfPerson = kindPersonEntity
		req.Regime = regimeSimplified
	}
	if c.Address != "" || c.City != "" {
		req.Address = &contactAddress{Address: c.Address, City: c.City}
	}
	return req
}

func buildInvoiceRequest(inv *entity.InvoiceData, contactID string) *createInvoiceRequest {
	date := domaindian.IssueDate(inv)
	dueDate, form := date, paymentCash
	if inv.DueDate != nil {
		dueDate, form = inv.DueDate.Format("2006-01-02"), paymentCredit
	}
	return &createInvoiceRequest{
		Date:          date,
		DueDate:       dueDate,
		Client:        clientRef{ID: contactID},
		Items:         mapItems(inv.Items),
		PaymentForm:   form,
		PaymentMethod: paymentCash,
		Observations:  inv.Notes,
		Stamp:         stampRequest{GenerateStamp: true},
	}
}

// mapItems lleva cada ítem a la forma de Alegra; el descuento va como porcentaje del bruto.
func mapItems(items []entity.InvoiceItem) []invoiceItem {
	out := make([]invoiceItem, 0, len(items))
	for i, it := range items {
		name := strings.TrimSpace(it.Description)
		if name == "" {
			name = fmt.Sprintf("Ítem %d", i+1)
		}
		item := invoiceItem{
			Name:        name,
			Description: it.Description,
			Reference:   it.Code,
			Price:       it.UnitPrice.Round(2).InexactFloat64(),
			Quantity:    it.Quantity.InexactFloat64(),
		}
		gross := it.UnitPrice.Mul(it.Quantity)
		if it.Discount.IsPositive() && gross.IsPositive() {
			item.Discount = it.Discount.Div(gross).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		for _, t := range it.Taxes {
			if t.TaxRateID != "" {
				item.Tax = append(item.Tax, itemTax{ID: t.TaxRateID})
			}
		}
		out = append(out, item)
	}
	return out
}

// toResponse timbre "signed" → ACCEPTED; cualquier otro estado (o sin timbre) → PENDING.
func toResponse(inv *invoiceResponse, cufe string, production bool, raw []byte) *entity.ElectronicBillingResponse {
	resp := &entity.ElectronicBillingResponse{
		Success:  true,
		CUFE:     cufe,
		TrackID:  inv.ID.String(),
		Status:   entity.StatusPending,
		Response: json.RawMessage(raw),
	}
	if st := inv.Stamp; st != nil {
		if st.CUFE != "" {
			resp.CUFE = st.CUFE
		}
		resp.XMLURL = st.XML
		resp.PDFURL = st.PDF
		resp.Errors = append(resp.Errors, st.Errors...)
		resp.Errors = append(resp.Errors, st.Warnings...)
		if strings.EqualFold(strings.TrimSpace(st.Status), stampSigned) {
			resp.Status = entity.StatusAccepted
		}
	}
	if resp.CUFE != "" && !dian.IsSimulatedCufe(resp.CUFE) {
		resp.VerificationURL = dian.VerificationURL(resp.CUFE, production)
	}
	resp.Message = providers.DefaultMessage(resp.Status)
	if n := inv.NumberTemplate.FullNumber; n != "" {
		resp.Message += " (Alegra " + n + ")"
	}
	return resp
}
