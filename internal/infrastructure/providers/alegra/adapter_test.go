package alegra_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers/alegra"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlegra simula la API: registra cada llamada y responde según la ruta.
type fakeAlegra struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string][]byte
	auth     string
	contacts string // respuesta de GET /contacts
	created  string // respuesta de POST /contacts
	invoice  string // respuesta de POST /invoices
	status   map[string]int
}

func newFakeAlegra() *fakeAlegra {
	return &fakeAlegra{
		bodies:   map[string][]byte{},
		contacts: `[]`,
		created:  `{"id": 77, "name": "ACME"}`,
		invoice:  `{"id":"1001","status":"open","numberTemplate":{"fullNumber":"FE-15"},"stamp":{"status":"signed","cufe":"cufe-alegra","xml":"https://alegra/xml/1001","pdf":"https://alegra/pdf/1001"}}`,
		status:   map[string]int{},
	}
}

func (f *fakeAlegra) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	f.calls = append(f.calls, key)
	f.auth = r.Header.Get("Authorization")
	raw, _ := io.ReadAll(r.Body)
	f.bodies[key] = raw

	if code, ok := f.status[key]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"message":"error simulado","code":400}`))
		return
	}
	switch key {
	case "GET /contacts":
		_, _ = w.Write([]byte(f.contacts))
	case "POST /contacts":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(f.created))
	case "POST /invoices":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(f.invoice))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestTransmit_CreaElContactoAntesDeLaFactura(t *testing.T) {
	fake := newFakeAlegra()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	resp, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), invoice(), config(srv.URL), "cufe-local")
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /contacts", "POST /contacts", "POST /invoices"}, fake.calls)

	var contact map[string]any
	require.NoError(t, json.Unmarshal(fake.bodies["POST /contacts"], &contact))
	assert.Equal(t, "ACME S.A.S.", contact["name"])
	assert.Equal(t, "LEGAL_ENTITY", contact["kindOfPerson"])
	assert.Equal(t, "COMMON_REGIME", contact["regime"])
	ident := contact["identificationObject"].(map[string]any)
	assert.Equal(t, "NIT", ident["type"])
	assert.Equal(t, "900000000", ident["number"])
	assert.Equal(t, "5", ident["dv"])

	var inv struct {
		Client struct {
			ID string `json:"id"`
		} `json:"client"`
		Items []struct {
			Name     string  `json:"name"`
			Price    float64 `json:"price"`
			Quantity float64 `json:"quantity"`
			Discount float64 `json:"discount"`
			Tax      []struct {
				ID string `json:"id"`
			} `json:"tax"`
		} `json:"items"`
		Date  string `json:"date"`
		Stamp struct {
			GenerateStamp bool `json:"generateStamp"`
		} `json:"stamp"`
	}
	require.NoError(t, json.Unmarshal(fake.bodies["POST /invoices"], &inv))
	assert.Equal(t, "77", inv.Client.ID, "la factura referencia el contacto recién creado")
	assert.True(t, inv.Stamp.GenerateStamp)
	assert.Equal(t, "2024-01-15", inv.Date)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Servicio de consultoría", inv.Items[0].Name)
	assert.Equal(t, 1000.0, inv.Items[0].Price)
	assert.Equal(t, 2.0, inv.Items[0].Quantity)
	assert.Equal(t, 10.0, inv.Items[0].Discount)
	require.Len(t, inv.Items[0].Tax, 1)
	assert.Equal(t, "3", inv.Items[0].Tax[0].ID)

	assert.Equal(t, "Basic ZmFjdHVyYXNAZW1wcmVzYS5jb206dG9rZW4tYWxlZ3Jh", fake.auth)

	assert.True(t, resp.Success)
	assert.Equal(t, entity.StatusAccepted, resp.Status)
	assert.Equal(t, "cufe-alegra", resp.CUFE)
	assert.Equal(t, "https://alegra/xml/1001", resp.XMLURL)
	assert.Equal(t, "https://alegra/pdf/1001", resp.PDFURL)
	assert.Equal(t, "1001", resp.TrackID)
	assert.Contains(t, resp.Message, "FE-15")
	assert.Contains(t, resp.VerificationURL, "cufe-alegra")
}

func TestTransmit_ContactoExistente(t *testing.T) {
	fake := newFakeAlegra()
	fake.contacts = `[{"id":"12","name":"ACME S.A.S."}]`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	_, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), invoice(), config(srv.URL), "c")
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /contacts", "POST /invoices"}, fake.calls)
	assert.Contains(t, string(fake.bodies["POST /invoices"]), `"client":{"id":"12"}`)
}

func TestTransmit_PersonaNatural(t *testing.T) {
	fake := newFakeAlegra()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	inv := invoice()
	inv.Customer = entity.InvoiceCustomer{TaxID: "1020304050", Name: "Ana Gómez"}
	_, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), inv, config(srv.URL), "c")
	require.NoError(t, err)

	var contact map[string]any
	require.NoError(t, json.Unmarshal(fake.bodies["POST /contacts"], &contact))
	assert.Equal(t, "PERSON_ENTITY", contact["kindOfPerson"])
	assert.Equal(t, "SIMPLIFIED_REGIME", contact["regime"])
	ident := contact["identificationObject"].(map[string]any)
	assert.Equal(t, "CC", ident["type"])
	assert.NotContains(t, ident, "dv")
}

func TestTransmit_TimbrePendiente(t *testing.T) {
	fake := newFakeAlegra()
	fake.invoice = `{"id":1002,"stamp":{"status":"pending"}}`
	srv := httptest.NewServer(fake)
	defer srv.Close()

	resp, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), invoice(), config(srv.URL), "cufe-local")
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, entity.StatusPending, resp.Status)
	assert.Equal(t, "cufe-local", resp.CUFE)
	assert.Equal(t, "1002", resp.TrackID)
}

func TestTransmit_FallaUnPasoCortaElFlujo(t *testing.T) {
	fake := newFakeAlegra()
	fake.status["POST /contacts"] = http.StatusBadRequest
	srv := httptest.NewServer(fake)
	defer srv.Close()

	resp, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), invoice(), config(srv.URL), "c")
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, domain.ErrRejected))
	assert.Contains(t, err.Error(), "crear contacto")
	assert.Contains(t, err.Error(), "error simulado")
	assert.NotContains(t, fake.calls, "POST /invoices")
}

func TestTransmit_SinCredenciales(t *testing.T) {
	cfg := config("http://127.0.0.1:1")
	cfg.AlegraToken = ""
	_, err := alegra.New(nil, zerolog.Nop()).Transmit(context.Background(), invoice(), cfg, "c")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "alegra_token")
}

func config(baseURL string) *entity.ElectronicBillingConfig {
	return &entity.ElectronicBillingConfig{
		Provider:      entity.ProviderAlegra,
		AlegraEmail:   "facturas@empresa.com",
		AlegraToken:   "token-alegra",
		AlegraBaseURL: baseURL,
	}
}

func invoice() *entity.InvoiceData {
	return &entity.InvoiceData{
		Number:    "FE-15",
		IssueDate: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		IssueTime: "10:30:00",
		Customer:  entity.InvoiceCustomer{TaxID: "900000000-5", Name: "ACME S.A.S.", IsCompany: true, Email: "compras@acme.co"},
		Items: []entity.InvoiceItem{{
			Code:        "SRV-1",
			Description: "Servicio de consultoría",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(1000),
			Discount:    decimal.NewFromInt(200),
			Subtotal:    decimal.NewFromInt(1800),
			Taxes: []entity.InvoiceTaxData{
				{Name: "IVA", Rate: decimal.NewFromInt(19), BaseAmount: decimal.NewFromInt(1800), TaxAmount: decimal.NewFromInt(342), TaxRateID: "3"},
			},
		}},
		Subtotal: decimal.NewFromInt(1800),
		Tax:      decimal.NewFromInt(342),
		Total:    decimal.NewFromInt(2142),
	}
}
