package dian_test

import (
	"encoding/xml"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturacion-electronica/internal/domain"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsedInvoice recupera los campos que deben sobrevivir al ida y vuelta.
type parsedInvoice struct {
	XMLName xml.Name `xml:"urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 Invoice"`
	ID      string   `xml:"urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2 ID"`
	UUID    struct {
		Value      string `xml:",chardata"`
		SchemeID   string `xml:"schemeID,attr"`
		SchemeName string `xml:"schemeName,attr"`
	} `xml:"urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2 UUID"`
	Payable struct {
		Value    string `xml:",chardata"`
		Currency string `xml:"currencyID,attr"`
	} `xml:"LegalMonetaryTotal>PayableAmount"`
	Lines []struct {
		ID string `xml:"urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2 ID"`
	} `xml:"InvoiceLine"`
}

func TestBuild_IdaYVuelta(t *testing.T) {
	inv, cfg := fixtureInvoice(), fixtureConfig()
	cufe, err := domaindian.CalculateCUFE(inv, cfg)
	require.NoError(t, err)

	out, err := dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: cufe})
	require.NoError(t, err)

	var parsed parsedInvoice
	require.NoError(t, xml.Unmarshal(out, &parsed))
	assert.Equal(t, "SETP990000001", parsed.ID)
	assert.Equal(t, cufe, parsed.UUID.Value)
	assert.Equal(t, "2", parsed.UUID.SchemeID, "ambiente de pruebas")
	assert.Equal(t, "CUFE-SHA384", parsed.UUID.SchemeName)
	assert.Equal(t, "1202140.00", parsed.Payable.Value)
	assert.Equal(t, "COP", parsed.Payable.Currency)
	require.Len(t, parsed.Lines, 2)
	assert.Equal(t, "1", parsed.Lines[0].ID)
	assert.Equal(t, "2", parsed.Lines[1].ID)
}

func TestBuild_RaizConNamespacesEId(t *testing.T) {
	out := buildFixture(t)
	head := string(out[:strings.Index(string(out), "<ext:UBLExtensions>")])

	assert.True(t, strings.HasPrefix(string(out), `<?xml version="1.0" encoding="UTF-8" standalone="no"?>`))
	for _, decl := range []string{
		`xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"`,
		`xmlns:cac="` + dian.NsCac + `"`,
		`xmlns:cbc="` + dian.NsCbc + `"`,
		`xmlns:ds="` + dian.NsDs + `"`,
		`xmlns:ext="` + dian.NsExt + `"`,
		`xmlns:sts="` + dian.NsSts + `"`,
		`xmlns:xades="` + dian.NsXades + `"`,
		`xmlns:xades141="` + dian.NsXades141 + `"`,
		`xmlns:xsi="` + dian.NsXsi + `"`,
		`xsi:schemaLocation=`,
		`Id="invoice-id"`,
	} {
		assert.Contains(t, head, decl)
	}
	// Un solo juego de declaraciones: nada de xmlns repetidos por elemento.
	assert.Equal(t, 1, strings.Count(string(out), "xmlns:cbc="))
}

func TestBuild_Extensiones(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buildFixture(t)))
	root := doc.Root()

	first := root.ChildElements()[0]
	assert.Equal(t, "ext", first.Space)
	assert.Equal(t, "UBLExtensions", first.Tag, "UBLExtensions es el primer hijo")

	contents := root.FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	require.Len(t, contents, 2)
	assert.Empty(t, contents[1].Child, "el slot de firma queda vacío")

	ext := contents[0].FindElement("./DianExtensions")
	require.NotNil(t, ext)
	assert.Equal(t, "18760000001", ext.FindElement("./InvoiceControl/InvoiceAuthorization").Text())
	assert.Equal(t, "2019-01-19", ext.FindElement("./InvoiceControl/AuthorizationPeriod/StartDate").Text())
	assert.Equal(t, "2030-01-19", ext.FindElement("./InvoiceControl/AuthorizationPeriod/EndDate").Text())
	assert.Equal(t, "SETP", ext.FindElement("./InvoiceControl/AuthorizedInvoices/Prefix").Text())
	assert.Equal(t, "990000000", ext.FindElement("./InvoiceControl/AuthorizedInvoices/From").Text())
	assert.Equal(t, "995000000", ext.FindElement("./InvoiceControl/AuthorizedInvoices/To").Text())
	assert.Equal(t, "CO", ext.FindElement("./InvoiceSource/IdentificationCode").Text())

	provider := ext.FindElement("./SoftwareProvider/ProviderID")
	assert.Equal(t, "900123456", provider.Text())
	assert.Equal(t, "8", provider.SelectAttrValue("schemeID", ""))
	assert.Equal(t, fixtureConfig().SoftwareID, ext.FindElement("./SoftwareProvider/SoftwareID").Text())

	code, err := domaindian.SoftwareSecurityCode(fixtureInvoice(), fixtureConfig())
	require.NoError(t, err)
	assert.Equal(t, code, ext.FindElement("./SoftwareSecurityCode").Text())
	assert.NotEqual(t, ext.FindElement("./SoftwareSecurityCode").Text(), root.FindElement("./UUID").Text(),
		"el código de seguridad no es el CUFE")
	assert.Contains(t, ext.FindElement("./QRCode").Text(), "CUFE: "+root.FindElement("./UUID").Text())
}

func TestBuild_MediosDePago(t *testing.T) {
	inv, cfg := fixtureInvoice(), fixtureConfig()
	due := inv.IssueDate.AddDate(0, 0, 30)
	inv.DueDate = &due
	inv.PaymentMeansCode = "47"

	out, err := dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: "cufe"})
	require.NoError(t, err)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	means := doc.Root().FindElement("./PaymentMeans")
	require.NotNil(t, means)
	assert.Equal(t, "2", means.FindElement("./ID").Text(), "con vencimiento es crédito")
	assert.Equal(t, "47", means.FindElement("./PaymentMeansCode").Text())
	assert.Equal(t, due.Format("2006-01-02"), means.FindElement("./PaymentDueDate").Text())

	inv.DueDate, inv.PaymentMeansCode = nil, ""
	out, err = dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: "cufe"})
	require.NoError(t, err)
	doc = etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	means = doc.Root().FindElement("./PaymentMeans")
	assert.Equal(t, "1", means.FindElement("./ID").Text())
	assert.Equal(t, "10", means.FindElement("./PaymentMeansCode").Text())
	assert.Nil(t, means.FindElement("./PaymentDueDate"))
}

func TestBuild_PartesYTotales(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buildFixture(t)))
	root := doc.Root()

	supplier := root.FindElement("./AccountingSupplierParty")
	assert.Equal(t, "1", supplier.FindElement("./AdditionalAccountID").Text())
	companyID := supplier.FindElement("./Party/PartyTaxScheme/CompanyID")
	assert.Equal(t, "900123456", companyID.Text(), "NIT sin dígito de verificación")
	assert.Equal(t, "8", companyID.SelectAttrValue("schemeID", ""))
	assert.Equal(t, "31", companyID.SelectAttrValue("schemeName", ""))
	assert.Equal(t, "01", supplier.FindElement("./Party/PartyTaxScheme/TaxScheme/ID").Text())
	assert.Equal(t, "IVA", supplier.FindElement("./Party/PartyTaxScheme/TaxScheme/Name").Text())
	assert.Equal(t, "Bogotá D.C.", supplier.FindElement("./Party/PhysicalLocation/Address/CityName").Text())

	customer := root.FindElement("./AccountingCustomerParty")
	assert.Equal(t, "1", customer.FindElement("./AdditionalAccountID").Text())
	assert.Equal(t, "800197268", customer.FindElement("./Party/PartyTaxScheme/CompanyID").Text())

	totals := root.FindElement("./LegalMonetaryTotal")
	assert.Equal(t, "1000000.00", totals.FindElement("./LineExtensionAmount").Text())
	assert.Equal(t, "1000000.00", totals.FindElement("./TaxExclusiveAmount").Text())
	assert.Equal(t, "1202140.00", totals.FindElement("./TaxInclusiveAmount").Text())
	assert.Equal(t, "1202140.00", totals.FindElement("./PayableAmount").Text())

	taxTotals := root.FindElements("./TaxTotal")
	require.Len(t, taxTotals, 3, "un TaxTotal por esquema: IVA, INC, otros")
	assert.Equal(t, "01", taxTotals[0].FindElement(".//TaxScheme/ID").Text())
	assert.Equal(t, "04", taxTotals[1].FindElement(".//TaxScheme/ID").Text())
	assert.Equal(t, "03", taxTotals[2].FindElement(".//TaxScheme/ID").Text())

	line := root.FindElement("./InvoiceLine")
	assert.Equal(t, "94", line.FindElement("./InvoicedQuantity").SelectAttrValue("unitCode", ""))
	assert.Equal(t, "Portátil", line.FindElement("./Item/Description").Text())
	assert.Equal(t, "1000000.00", line.FindElement("./Price/PriceAmount").Text())
}

func TestBuild_PersonaNatural(t *testing.T) {
	inv, cfg := fixtureInvoice(), fixtureConfig()
	inv.Customer = entity.InvoiceCustomer{TaxID: "1020304050", Name: "Jose\u0301 Pe\u0301rez", IsCompany: false}

	out, err := dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: "x"})
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	customer := doc.Root().FindElement("./AccountingCustomerParty")
	assert.Equal(t, "2", customer.FindElement("./AdditionalAccountID").Text())
	id := customer.FindElement("./Party/PartyIdentification/ID")
	assert.Equal(t, "1020304050", id.Text())
	assert.Equal(t, "13", id.SelectAttrValue("schemeName", ""))
	assert.Empty(t, id.SelectAttrValue("schemeID", ""), "cédula sin DV")
	assert.Equal(t, "José Pérez", customer.FindElement("./Party/PartyName/Name").Text(), "texto normalizado NFC")
}

func TestBuild_ConfiguracionIncompleta(t *testing.T) {
	cases := map[string]func(cfg *entity.ElectronicBillingConfig){
		"resolution.number":              func(cfg *entity.ElectronicBillingConfig) { cfg.Resolution.Number = "" },
		"resolution.range_from/range_to": func(cfg *entity.ElectronicBillingConfig) { cfg.Resolution.RangeTo = 0 },
		"resolution.valid_to":            func(cfg *entity.ElectronicBillingConfig) { cfg.Resolution.ValidTo = time.Time{} },
		"software_id":                    func(cfg *entity.ElectronicBillingConfig) { cfg.SoftwareID = "" },
		"software_pin":                   func(cfg *entity.ElectronicBillingConfig) { cfg.SoftwarePIN = "" },
		"issuer.nit":                     func(cfg *entity.ElectronicBillingConfig) { cfg.Issuer.NIT = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			cfg := fixtureConfig()
			mutate(cfg)
			out, err := dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: fixtureInvoice(), Config: cfg, CUFE: "x"})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, domain.ErrConfiguration))
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestBuild_SeFirmaConXAdES(t *testing.T) {
	cert, err := os.ReadFile("signer/testdata/certificado.p12")
	require.NoError(t, err)

	signed, err := signer.NewXAdESSigner().Sign(buildFixture(t), cert, "prueba123")
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	contents := doc.Root().FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	require.Len(t, contents, 2)
	assert.NotNil(t, contents[1].FindElement("./Signature"))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func buildFixture(t *testing.T) []byte {
	t.Helper()
	inv, cfg := fixtureInvoice(), fixtureConfig()
	cufe, err := domaindian.CalculateCUFE(inv, cfg)
	require.NoError(t, err)
	out, err := dian.NewXMLBuilderService().Build(&dian.InvoiceBuildContext{Invoice: inv, Config: cfg, CUFE: cufe})
	require.NoError(t, err)
	return out
}

func fixtureInvoice() *entity.InvoiceData {
	return &entity.InvoiceData{
		ID:          "inv-1",
		Number:      "SETP990000001",
		Prefix:      "SETP",
		Consecutive: 990000001,
		IssueDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		IssueTime:   "10:30:00-05:00",
		Customer: entity.InvoiceCustomer{
			TaxID:     "800197268-4",
			Name:      "DIRECCION DE IMPUESTOS",
			IsCompany: true,
			Email:     "facturas@dian.gov.co",
		},
		Items: []entity.InvoiceItem{
			{
				Code:        "P-001",
				Description: "Portátil",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(1_000_000),
				Subtotal:    decimal.NewFromInt(1_000_000),
				Taxes: []entity.InvoiceTaxData{
					{Name: "IVA", Rate: decimal.NewFromInt(19), BaseAmount: decimal.NewFromInt(1_000_000), TaxAmount: decimal.NewFromInt(190_000)},
				},
			},
			{
				Description: "Bolsa",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.Zero,
				Subtotal:    decimal.Zero,
			},
		},
		TaxSummary: []entity.InvoiceTaxData{
			{Name: "IVA", Rate: decimal.NewFromInt(19), BaseAmount: decimal.NewFromInt(1_000_000), TaxAmount: decimal.NewFromInt(190_000)},
			{Name: "Impoconsumo", Rate: decimal.NewFromInt(8), BaseAmount: decimal.NewFromInt(100_000), TaxAmount: decimal.NewFromInt(8_000)},
			{Name: "ICA", Rate: decimal.RequireFromString("0.414"), BaseAmount: decimal.NewFromInt(1_000_000), TaxAmount: decimal.NewFromInt(4_140)},
		},
		Subtotal: decimal.NewFromInt(1_000_000),
		Discount: decimal.Zero,
		Tax:      decimal.NewFromInt(202_140),
		Total:    decimal.NewFromInt(1_202_140),
	}
}

func fixtureConfig() *entity.ElectronicBillingConfig {
	return &entity.ElectronicBillingConfig{
		Provider:    entity.ProviderDIANDirect,
		Environment: entity.EnvironmentTest,
		Issuer: entity.Issuer{
			NIT:          "900123456-8",
			Name:         "EMPRESA DE PRUEBAS S.A.S.",
			Address:      "Calle 1 # 2-3",
			City:         "Bogotá D.C.",
			TaxLevelCode: "O-13",
		},
		Resolution: entity.BillingResolution{
			Number:    "18760000001",
			Prefix:    "SETP",
			RangeFrom: 990000000,
			RangeTo:   995000000,
			ValidFrom: time.Date(2019, 1, 19, 0, 0, 0, 0, time.UTC),
			ValidTo:   time.Date(2030, 1, 19, 0, 0, 0, 0, time.UTC),
		},
		TechnicalKey: "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c354673d3a603956897890cd",
		SoftwareID:   "56f2ae4e-9812-4fad-9255-08fcfcd5ccb0",
		SoftwarePIN:  "12345",
		TestSetID:    "a1b2c3d4-test-set",
	}
}
