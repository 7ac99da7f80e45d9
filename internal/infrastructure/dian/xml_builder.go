package dian

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	domaindian "github.com/jhoicas/facturacion-electronica/internal/domain/dian"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Namespaces oficiales UBL 2.1 y DIAN (Anexo Técnico 1.9).
const (
	// Namespace por defecto (UBL Invoice)
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	// Common Aggregate Components
	NsCac = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	// Common Basic Components
	NsCbc = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	// Extension Components
	NsExt = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	// DIAN Extensions
	NsSts = "dian:gov:co:facturaelectronica:Structures-2-1"
	// XML Digital Signature
	NsDs = "http://www.w3.org/2000/09/xmldsig#"
	// XAdES (para la firma)
	NsXades    = "http://uri.etsi.org/01903/v1.3.2#"
	NsXades141 = "http://uri.etsi.org/01903/v1.4.1#"
	// XML Schema Instance (para schemaLocation)
	NsXsi = "http://www.w3.org/2001/XMLSchema-instance"
	// Schema location UBL Invoice 2.1
	schemaLocationInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-Invoice-2.1.xsd"
)

const currency = dian.CurrencyCOP

// XMLBuilderService construye el XML UBL 2.1 de la factura (sin firma XAdES).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del documento Invoice según UBL 2.1 y extensiones DIAN.
// Falla con domain.ErrConfiguration si falta la resolución, el software o el emisor.
func (s *XMLBuilderService) Build(ctx *InvoiceBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Invoice == nil || ctx.Config == nil {
		return nil, fmt.Errorf("dian: faltan invoice o config en el contexto")
	}
	if err := checkBuildConfig(ctx.Config); err != nil {
		return nil, err
	}
	securityCode, err := domaindian.SoftwareSecurityCode(ctx.Invoice, ctx.Config)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := &ublWriter{enc: xml.NewEncoder(&buf)}
	w.enc.Indent("", "  ")

	w.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8" standalone="no"`)})

	// Root <Invoice> con los namespaces obligatorios. Id para Reference URI en firma XAdES.
	w.open("Invoice", rootAttrs()...)

	// ---- CRÍTICO: ext:UBLExtensions siempre como primer hijo de Invoice (requerido por el firmador)
	s.writeUBLExtensions(w, ctx, securityCode)

	inv, cfg := ctx.Invoice, ctx.Config
	env := cfg.EnvironmentCode()

	w.cbc("UBLVersionID", dian.UBLVersion)
	w.cbc("CustomizationID", dian.CustomizationStandard)
	w.cbc("ProfileID", dian.ProfileInvoice)
	w.cbc("ProfileExecutionID", env)
	w.cbc("ID", inv.Number)
	// cbc:UUID = CUFE (Código Único de Factura Electrónica)
	w.cbc("UUID", ctx.CUFE, attr("schemeID", env), attr("schemeName", dian.CUFESchemeName))
	w.cbc("IssueDate", domaindian.IssueDate(inv))
	w.cbc("IssueTime", domaindian.IssueTime(inv))
	if inv.DueDate != nil {
		w.cbc("DueDate", inv.DueDate.Format("2006-01-02"))
	}
	w.cbc("InvoiceTypeCode", inv.DocumentTypeOrDefault())
	w.cbc("Note", dian.DefaultInvoiceNote)
	if notes := strings.TrimSpace(inv.Notes); notes != "" {
		w.cbc("Note", notes)
	}
	w.cbc("DocumentCurrencyCode", currency)
	w.cbc("LineCountNumeric", strconv.Itoa(len(inv.Items)))

	s.writeSupplierParty(w, cfg)
	s.writeCustomerParty(w, inv)
	s.writePaymentMeans(w, ctx)
	s.writeTaxTotals(w, inv.TaxSummary)
	s.writeLegalMonetaryTotal(w, inv)
	for i, item := range inv.Items {
		s.writeInvoiceLine(w, i+1, item)
	}

	w.close("Invoice")
	if w.err != nil {
		return nil, fmt.Errorf("dian: generar XML: %w", w.err)
	}
	if err := w.enc.Flush(); err != nil {
		return nil, fmt.Errorf("dian: generar XML: %w", err)
	}
	return buf.Bytes(), nil
}

// rootAttrs devuelve el Id y las declaraciones de namespace del <Invoice>.
func rootAttrs() []xml.Attr {
	return []xml.Attr{
		attr("xmlns", NsInvoice),
		attr("xmlns:cac", NsCac),
		attr("xmlns:cbc", NsCbc),
		attr("xmlns:ds", NsDs),
		attr("xmlns:ext", NsExt),
		attr("xmlns:sts", NsSts),
		attr("xmlns:xades", NsXades),
		attr("xmlns:xades141", NsXades141),
		attr("xmlns:xsi", NsXsi),
		attr("xsi:schemaLocation", schemaLocationInvoice),
		attr("Id", dian.InvoiceElementID),
	}
}

func checkBuildConfig(cfg *entity.ElectronicBillingConfig) error {
	if missing := cfg.Resolution.Missing(); missing != "" {
		return fmt.Errorf("%w: %s es obligatorio para generar el XML", domain.ErrConfiguration, missing)
	}
	if strings.TrimSpace(cfg.Issuer.NIT) == "" {
		return fmt.Errorf("%w: issuer.nit es obligatorio para generar el XML", domain.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.Issuer.Name) == "" {
		return fmt.Errorf("%w: issuer.name es obligatorio para generar el XML", domain.ErrConfiguration)
	}
	return nil
}

// writeUBLExtensions escribe siempre ext:UBLExtensions como primer hijo de Invoice.
// Extensión 1: DianExtensions. Extensión 2: ExtensionContent vacío; el firmador inyecta aquí <ds:Signature>.
func (s *XMLBuilderService) writeUBLExtensions(w *ublWriter, ctx *InvoiceBuildContext, securityCode string) {
	cfg := ctx.Config
	res := cfg.Resolution

	w.open("ext:UBLExtensions")

	w.open("ext:UBLExtension")
	w.open("ext:ExtensionContent")
	w.open("sts:DianExtensions")

	w.open("sts:InvoiceControl")
	w.leaf("sts:InvoiceAuthorization", res.Number)
	w.open("sts:AuthorizationPeriod")
	w.cbc("StartDate", res.ValidFrom.Format("2006-01-02"))
	w.cbc("EndDate", res.ValidTo.Format("2006-01-02"))
	w.close("sts:AuthorizationPeriod")
	w.open("sts:AuthorizedInvoices")
	if res.Prefix != "" {
		w.leaf("sts:Prefix", res.Prefix)
	}
	w.leaf("sts:From", strconv.FormatInt(res.RangeFrom, 10))
	w.leaf("sts:To", strconv.FormatInt(res.RangeTo, 10))
	w.close("sts:AuthorizedInvoices")
	w.close("sts:InvoiceControl")

	w.open("sts:InvoiceSource")
	w.cbc("IdentificationCode", dian.CountryCodeColombia,
		attr("listAgencyID", "6"),
		attr("listAgencyName", "United Nations Economic Commission for Europe"),
		attr("listSchemeURI", "urn:oasis:names:specification:ubl:codelist:gc:CountryIdentificationCode-2.1"))
	w.close("sts:InvoiceSource")

	w.open("sts:SoftwareProvider")
	w.leaf("sts:ProviderID", dian.BaseNIT(cfg.Issuer.NIT), nitAttrs(cfg.Issuer.NIT, true)...)
	w.leaf("sts:SoftwareID", cfg.SoftwareID, agencyAttrs()...)
	w.close("sts:SoftwareProvider")

	w.leaf("sts:SoftwareSecurityCode", securityCode, agencyAttrs()...)

	w.open("sts:AuthorizationProvider")
	w.leaf("sts:AuthorizationProviderID", dian.AuthorizationProviderNIT,
		append(agencyAttrs(), attr("schemeID", "4"), attr("schemeName", dian.IdentificationTypeNIT))...)
	w.close("sts:AuthorizationProvider")

	w.leaf("sts:QRCode", QRContent(ctx.Invoice, cfg, ctx.CUFE))

	w.close("sts:DianExtensions")
	w.close("ext:ExtensionContent")
	w.close("ext:UBLExtension")

	w.open("ext:UBLExtension")
	w.open("ext:ExtensionContent")
	w.close("ext:ExtensionContent")
	w.close("ext:UBLExtension")

	w.close("ext:UBLExtensions")
}

func (s *XMLBuilderService) writeSupplierParty(w *ublWriter, cfg *entity.ElectronicBillingConfig) {
	iss := cfg.Issuer
	w.open("cac:AccountingSupplierParty")
	w.cbc("AdditionalAccountID", dian.OrganizationLegalEntity)
	w.open("cac:Party")
	s.writeParty(w, partyData{
		taxID:        iss.NIT,
		name:         iss.Name,
		address:      iss.Address,
		city:         iss.City,
		phone:        iss.Phone,
		email:        iss.Email,
		taxLevelCode: iss.TaxLevelCode,
		isCompany:    true,
	})
	w.close("cac:Party")
	w.close("cac:AccountingSupplierParty")
}

func (s *XMLBuilderService) writeCustomerParty(w *ublWriter, inv *entity.InvoiceData) {
	c := inv.Customer
	accountID := dian.OrganizationNaturalPerson
	if c.IsCompany {
		accountID = dian.OrganizationLegalEntity
	}
	w.open("cac:AccountingCustomerParty")
	w.cbc("AdditionalAccountID", accountID)
	w.open("cac:Party")
	if !c.IsCompany {
		w.open("cac:PartyIdentification")
		w.cbc("ID", dian.BaseNIT(c.TaxID), nitAttrs(c.TaxID, false)...)
		w.close("cac:PartyIdentification")
	}
	s.writeParty(w, partyData{
		taxID:        c.TaxID,
		name:         c.Name,
		address:      c.Address,
		city:         c.City,
		phone:        c.Phone,
		email:        c.Email,
		taxLevelCode: c.TaxLevelCode,
		isCompany:    c.IsCompany,
	})
	w.close("cac:Party")
	w.close("cac:AccountingCustomerParty")
}

type partyData struct {
	taxID        string
	name         string
	address      string
	city         string
	phone        string
	email        string
	taxLevelCode string
	isCompany    bool
}

// writeParty escribe PartyName, PhysicalLocation, PartyTaxScheme, PartyLegalEntity y Contact.
func (s *XMLBuilderService) writeParty(w *ublWriter, p partyData) {
	w.open("cac:PartyName")
	w.cbc("Name", p.name)
	w.close("cac:PartyName")

	if p.city != "" || p.address != "" {
		w.open("cac:PhysicalLocation")
		w.open("cac:Address")
		if p.city != "" {
			w.cbc("CityName", p.city)
		}
		if p.address != "" {
			w.open("cac:AddressLine")
			w.cbc("Line", p.address)
			w.close("cac:AddressLine")
		}
		w.open("cac:Country")
		w.cbc("IdentificationCode", dian.CountryCodeColombia)
		w.close("cac:Country")
		w.close("cac:Address")
		w.close("cac:PhysicalLocation")
	}

	baseNIT := dian.BaseNIT(p.taxID)
	w.open("cac:PartyTaxScheme")
	w.cbc("RegistrationName", p.name)
	w.cbc("CompanyID", baseNIT, nitAttrs(p.taxID, p.isCompany)...)
	w.cbc("TaxLevelCode", dian.FiscalResponsibilityOrDefault(p.taxLevelCode), attr("listName", dian.TaxLevelListName))
	w.open("cac:TaxScheme")
	w.cbc("ID", dian.TaxCodeIVA)
	w.cbc("Name", dian.TaxSchemeNames[dian.TaxCodeIVA])
	w.close("cac:TaxScheme")
	w.close("cac:PartyTaxScheme")

	w.open("cac:PartyLegalEntity")
	w.cbc("RegistrationName", p.name)
	w.cbc("CompanyID", baseNIT, nitAttrs(p.taxID, p.isCompany)...)
	w.close("cac:PartyLegalEntity")

	if p.phone != "" || p.email != "" {
		w.open("cac:Contact")
		if p.phone != "" {
			w.cbc("Telephone", p.phone)
		}
		if p.email != "" {
			w.cbc("ElectronicMail", p.email)
		}
		w.close("cac:Contact")
	}
}

func (s *XMLBuilderService) writePaymentMeans(w *ublWriter, ctx *InvoiceBuildContext) {
	form := dian.PaymentFormContado
	if ctx.Invoice.DueDate != nil {
		form = dian.PaymentFormCredito
	}
	method := ctx.Invoice.PaymentMeansCode
	if method == "" {
		method = dian.PaymentMethodEfectivo
	}
	w.open("cac:PaymentMeans")
	w.cbc("ID", form)
	w.cbc("PaymentMeansCode", method)
	if ctx.Invoice.DueDate != nil {
		w.cbc("PaymentDueDate", ctx.Invoice.DueDate.Format("2006-01-02"))
	}
	w.close("cac:PaymentMeans")
}

// writeTaxTotals escribe un cac:TaxTotal por esquema tributario, en el orden en que aparecen.
func (s *XMLBuilderService) writeTaxTotals(w *ublWriter, taxes []entity.InvoiceTaxData) {
	for _, g := range groupTaxes(taxes) {
		total := decimal.Zero
		for _, t := range g.lines {
			total = total.Add(t.TaxAmount)
		}
		w.open("cac:TaxTotal")
		w.amount("TaxAmount", total)
		for _, t := range g.lines {
			w.open("cac:TaxSubtotal")
			w.amount("TaxableAmount", t.BaseAmount)
			w.amount("TaxAmount", t.TaxAmount)
			w.open("cac:TaxCategory")
			w.cbc("Percent", dian.FormatAmount(t.Rate))
			w.open("cac:TaxScheme")
			w.cbc("ID", g.code)
			w.cbc("Name", g.name)
			w.close("cac:TaxScheme")
			w.close("cac:TaxCategory")
			w.close("cac:TaxSubtotal")
		}
		w.close("cac:TaxTotal")
	}
}

func groupTaxes(taxes []entity.InvoiceTaxData) []*taxGroup {
	var groups []*taxGroup
	byCode := make(map[string]*taxGroup)
	for _, t := range taxes {
		code := taxSchemeCode(t.Name)
		g, ok := byCode[code]
		if !ok {
			g = &taxGroup{code: code, name: dian.TaxSchemeNames[code]}
			byCode[code] = g
			groups = append(groups, g)
		}
		g.lines = append(g.lines, t)
	}
	return groups
}

// taxSchemeCode usa la misma clasificación que el CUFE para que XML y hash coincidan.
func taxSchemeCode(name string) string {
	switch domaindian.ClassifyTax(name) {
	case domaindian.TaxBucketVAT:
		return dian.TaxCodeIVA
	case domaindian.TaxBucketConsumption:
		return dian.TaxCodeINC
	default:
		return dian.TaxCodeICA
	}
}

func (s *XMLBuilderService) writeLegalMonetaryTotal(w *ublWriter, inv *entity.InvoiceData) {
	w.open("cac:LegalMonetaryTotal")
	w.amount("LineExtensionAmount", inv.Subtotal)
	w.amount("TaxExclusiveAmount", inv.Subtotal)
	w.amount("TaxInclusiveAmount", inv.Total)
	if inv.Discount.IsPositive() {
		w.amount("AllowanceTotalAmount", inv.Discount)
	}
	w.amount("PayableAmount", inv.Total)
	w.close("cac:LegalMonetaryTotal")
}

func (s *XMLBuilderService) writeInvoiceLine(w *ublWriter, lineNum int, item entity.InvoiceItem) {
	unitCode := item.UnitCode
	if unitCode == "" {
		unitCode = dian.UnitUnit
	}
	w.open("cac:InvoiceLine")
	w.cbc("ID", strconv.Itoa(lineNum))
	w.cbc("InvoicedQuantity", item.Quantity.String(), attr("unitCode", unitCode))
	w.amount("LineExtensionAmount", item.Subtotal)

	if item.Discount.IsPositive() {
		w.open("cac:AllowanceCharge")
		w.cbc("ID", "1")
		w.cbc("ChargeIndicator", "false")
		w.amount("Amount", item.Discount)
		w.amount("BaseAmount", item.UnitPrice.Mul(item.Quantity))
		w.close("cac:AllowanceCharge")
	}

	s.writeTaxTotals(w, item.Taxes)

	// cac:Item
	w.open("cac:Item")
	desc := item.Description
	if desc == "" {
		desc = "Item " + strconv.Itoa(lineNum)
	}
	w.cbc("Description", desc)
	if item.Code != "" {
		w.open("cac:SellersItemIdentification")
		w.cbc("ID", item.Code)
		w.close("cac:SellersItemIdentification")
	}
	w.close("cac:Item")

	// cac:Price
	w.open("cac:Price")
	w.amount("PriceAmount", item.UnitPrice)
	w.cbc("BaseQuantity", "1", attr("unitCode", unitCode))
	w.close("cac:Price")

	w.close("cac:InvoiceLine")
}

// nitAttrs atributos de agencia DIAN para un número de identificación.
// Para NIT (persona jurídica) incluye el DV en schemeID.
func nitAttrs(taxID string, isCompany bool) []xml.Attr {
	attrs := agencyAttrs()
	if isCompany {
		if dv := dian.CheckDigit(taxID); dv != "" {
			attrs = append(attrs, attr("schemeID", dv))
		}
		return append(attrs, attr("schemeName", dian.IdentificationTypeNIT))
	}
	return append(attrs, attr("schemeName", dian.IdentificationTypeCC))
}

func agencyAttrs() []xml.Attr {
	return []xml.Attr{
		attr("schemeAgencyID", dian.SchemeAgencyID),
		attr("schemeAgencyName", dian.SchemeAgencyName),
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// ublWriter escribe tokens con prefijos explícitos (cbc:, cac:, ...) y guarda el primer error.
// Los nombres van en Local sin Space para que encoding/xml no genere xmlns por elemento.
type ublWriter struct {
	enc *xml.Encoder
	err error
}

func (w *ublWriter) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

func (w *ublWriter) open(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *ublWriter) close(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *ublWriter) leaf(name, value string, attrs ...xml.Attr) {
	w.open(name, attrs...)
	w.token(xml.CharData(norm.NFC.String(value)))
	w.close(name)
}

func (w *ublWriter) cbc(local, value string, attrs ...xml.Attr) {
	w.leaf("cbc:"+local, value, attrs...)
}

func (w *ublWriter) amount(local string, d decimal.Decimal) {
	w.cbc(local, dian.FormatAmount(d), attr("currencyID", currency))
}
