package signer_test

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/dian/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "prueba123"

// unsignedInvoice es un Invoice mínimo con la forma que produce el builder:
// Id en la raíz y dos ext:UBLExtension, la segunda vacía.
const unsignedInvoice = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2" xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2" xmlns:ds="http://www.w3.org/2000/09/xmldsig#" xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2" xmlns:sts="dian:gov:co:facturaelectronica:Structures-2-1" Id="invoice-id">
  <ext:UBLExtensions>
    <ext:UBLExtension>
      <ext:ExtensionContent>
        <sts:DianExtensions>
          <sts:SoftwareSecurityCode>abc</sts:SoftwareSecurityCode>
        </sts:DianExtensions>
      </ext:ExtensionContent>
    </ext:UBLExtension>
    <ext:UBLExtension>
      <ext:ExtensionContent></ext:ExtensionContent>
    </ext:UBLExtension>
  </ext:UBLExtensions>
  <cbc:ID>SETP990000001</cbc:ID>
  <cac:LegalMonetaryTotal>
    <cbc:PayableAmount currencyID="COP">1190000.00</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
</Invoice>`

func readCert(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
}

// ── Certificado ───────────────────────────────────────────────────────────────

func TestLoadFromP12Bytes_CertificadoSimple(t *testing.T) {
	creds, err := signer.LoadFromP12Bytes(readCert(t, "certificado.p12"), testPassword)
	require.NoError(t, err)

	assert.Equal(t, "EMPRESA DE PRUEBAS SAS", creds.Leaf.Subject.CommonName)
	assert.Len(t, creds.Chain, 1)
	assert.NotNil(t, creds.PrivateKey)
	assert.NotContains(t, creds.Summary(), "PRIVATE")
}

func TestLoadFromP12Bytes_ConCadena(t *testing.T) {
	creds, err := signer.LoadFromP12Bytes(readCert(t, "certificado_cadena.p12"), testPassword)
	require.NoError(t, err)

	require.Len(t, creds.Chain, 2)
	assert.Equal(t, "EMPRESA DE PRUEBAS SAS", creds.Chain[0].Subject.CommonName, "la hoja va primero")
	assert.Equal(t, "AC Raiz Pruebas", creds.Chain[1].Subject.CommonName)
	assert.Same(t, creds.Leaf, creds.Chain[0])
	assert.Equal(t, "178190783051488227404167204860326849953324639365", creds.Leaf.SerialNumber.String())
}

func TestLoadFromP12Bytes_Errores(t *testing.T) {
	cases := map[string]struct {
		data     []byte
		password string
	}{
		"contraseña incorrecta": {readCert(t, "certificado.p12"), "otra"},
		"contenido inválido":    {[]byte("no soy un p12"), testPassword},
		"vacío":                 {nil, testPassword},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := signer.LoadFromP12Bytes(tc.data, tc.password)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrSigning))
		})
	}
}

// ── Firma XAdES ───────────────────────────────────────────────────────────────

func TestSign_InyectaFirmaEnSegundoExtensionContent(t *testing.T) {
	signed := signFixture(t, "certificado_cadena.p12")
	doc := parse(t, signed)

	contents := doc.Root().FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	require.Len(t, contents, 2)
	assert.NotNil(t, contents[0].FindElement("./DianExtensions"), "la primera extensión no se toca")

	sig := contents[1].FindElement("./Signature")
	require.NotNil(t, sig, "ds:Signature debe quedar en el segundo ExtensionContent")
	assert.Equal(t, "ds", sig.Space)

	refs := sig.FindElements("./SignedInfo/Reference")
	require.Len(t, refs, 3)
	assert.Equal(t, "#invoice-id", refs[0].SelectAttrValue("URI", ""))
	assert.Equal(t, "#"+sig.SelectAttrValue("Id", "")+"-keyinfo", refs[1].SelectAttrValue("URI", ""))
	assert.Equal(t, signer.TypeSignedProps, refs[2].SelectAttrValue("Type", ""))

	assert.Len(t, sig.FindElements("./KeyInfo/X509Data/X509Certificate"), 2)
	assert.NotNil(t, sig.FindElement("./Object/QualifyingProperties/SignedProperties/SignedSignatureProperties/SigningTime"))
	assert.Equal(t, "2024-01-15T05:30:00-05:00",
		sig.FindElement(".//SigningTime").Text(), "hora de firma en hora Colombia")
	assert.Equal(t, signer.SignaturePolicyURLV2, sig.FindElement(".//SigPolicyId/Identifier").Text())
	assert.Equal(t, signer.SignerRoleSupplier, sig.FindElement(".//ClaimedRole").Text())
}

func TestSign_DigestDelDocumentoCoincide(t *testing.T) {
	signed := signFixture(t, "certificado.p12")
	doc := parse(t, signed)
	sig := doc.FindElement(".//Signature")
	require.NotNil(t, sig)
	refs := sig.FindElements("./SignedInfo/Reference")
	declared := refs[0].FindElement("./DigestValue").Text()

	// Transformación enveloped: quitar la firma y digerir la raíz.
	sig.Parent().RemoveChild(sig)
	got := digestRootOf(t, doc)
	assert.Equal(t, declared, got)

	// Y coincide con el documento original sin firmar.
	assert.Equal(t, declared, digestRootOf(t, parse(t, []byte(unsignedInvoice))))
}

func TestSign_DigestKeyInfoYSignedProperties(t *testing.T) {
	signed := signFixture(t, "certificado.p12")
	sig := parse(t, signed).FindElement(".//Signature")
	refs := sig.FindElements("./SignedInfo/Reference")

	keyInfo := sig.FindElement("./KeyInfo")
	assert.Equal(t, refs[1].FindElement("./DigestValue").Text(), digestElement(t, keyInfo))

	props := sig.FindElement(".//SignedProperties")
	assert.Equal(t, refs[2].FindElement("./DigestValue").Text(), digestElement(t, props))
}

func TestSign_SignatureValueVerificaConCertificado(t *testing.T) {
	signed := signFixture(t, "certificado.p12")
	sig := parse(t, signed).FindElement(".//Signature")

	certB64 := sig.FindElement("./KeyInfo/X509Data/X509Certificate").Text()
	der, err := base64.StdEncoding.DecodeString(certB64)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	signatureValue, err := base64.StdEncoding.DecodeString(sig.FindElement("./SignatureValue").Text())
	require.NoError(t, err)

	// DigestC14N devuelve el SHA-256 del SignedInfo canonicalizado.
	hashB64 := digestElement(t, sig.FindElement("./SignedInfo"))
	hash, err := base64.StdEncoding.DecodeString(hashB64)
	require.NoError(t, err)

	pub := cert.PublicKey.(*rsa.PublicKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, hash, signatureValue))
}

func TestSign_DocumentoAlteradoNoCoincide(t *testing.T) {
	signed := signFixture(t, "certificado.p12")
	doc := parse(t, signed)
	sig := doc.FindElement(".//Signature")
	declared := sig.FindElement("./SignedInfo/Reference/DigestValue").Text()

	doc.FindElement(".//PayableAmount").SetText("1.00")
	sig.Parent().RemoveChild(sig)
	assert.NotEqual(t, declared, digestRootOf(t, doc))
}

func TestSign_Errores(t *testing.T) {
	s := signer.NewXAdESSigner()
	cert := readCert(t, "certificado.p12")

	_, err := s.Sign(nil, cert, testPassword)
	assert.True(t, errors.Is(err, domain.ErrSigning), "XML vacío")

	_, err = s.Sign([]byte(unsignedInvoice), cert, "mala")
	assert.True(t, errors.Is(err, domain.ErrSigning), "contraseña incorrecta")

	_, err = s.Sign([]byte(unsignedInvoice), nil, testPassword)
	assert.True(t, errors.Is(err, domain.ErrSigning), "sin certificado")

	noSlot := strings.Replace(unsignedInvoice, `<ext:UBLExtension>
      <ext:ExtensionContent></ext:ExtensionContent>
    </ext:UBLExtension>`, "", 1)
	_, err = s.Sign([]byte(noSlot), cert, testPassword)
	assert.True(t, errors.Is(err, domain.ErrSigning), "sin slot de firma")

	noID := strings.Replace(unsignedInvoice, ` Id="invoice-id"`, "", 1)
	_, err = s.Sign([]byte(noID), cert, testPassword)
	assert.True(t, errors.Is(err, domain.ErrSigning), "raíz sin Id")

	signed := signFixture(t, "certificado.p12")
	_, err = s.Sign(signed, cert, testPassword)
	assert.True(t, errors.Is(err, domain.ErrSigning), "documento ya firmado")
}

// ── Firmador de pruebas ───────────────────────────────────────────────────────

func TestPlaceholderSigner_MismaUbicacion(t *testing.T) {
	out, err := signer.NewPlaceholderSigner().Sign([]byte(unsignedInvoice), nil, "")
	require.NoError(t, err)
	assert.True(t, signer.IsPlaceholderSigned(out))

	contents := parse(t, out).Root().FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	require.Len(t, contents, 2)
	sig := contents[1].FindElement("./Signature")
	require.NotNil(t, sig)
	assert.Equal(t, signer.PlaceholderMarker, sig.FindElement("./SignatureValue").Text())
	assert.Equal(t, "#invoice-id", sig.FindElement("./SignedInfo/Reference").SelectAttrValue("URI", ""))
}

func TestXAdESSigner_NoEsPlaceholder(t *testing.T) {
	assert.False(t, signer.IsPlaceholderSigned(signFixture(t, "certificado.p12")))
}

func TestIsPlaceholderSigned_IgnoraMarcadorFueraDeLaFirma(t *testing.T) {
	withNote := strings.Replace(unsignedInvoice, `<cbc:ID>SETP990000001</cbc:ID>`,
		`<cbc:ID>SETP990000001</cbc:ID><cbc:Note>`+signer.PlaceholderMarker+`</cbc:Note>`, 1)

	assert.False(t, signer.IsPlaceholderSigned([]byte(withNote)))

	signed, err := signer.NewXAdESSigner().WithClock(fixedClock).
		Sign([]byte(withNote), readCert(t, "certificado.p12"), testPassword)
	require.NoError(t, err)
	assert.False(t, signer.IsPlaceholderSigned(signed))

	placeholder, err := signer.NewPlaceholderSigner().Sign([]byte(withNote), nil, "")
	require.NoError(t, err)
	assert.True(t, signer.IsPlaceholderSigned(placeholder))

	assert.False(t, signer.IsPlaceholderSigned([]byte("no es xml")))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func signFixture(t *testing.T, certName string) []byte {
	t.Helper()
	out, err := signer.NewXAdESSigner().WithClock(fixedClock).
		Sign([]byte(unsignedInvoice), readCert(t, certName), testPassword)
	require.NoError(t, err)
	return out
}

func parse(t *testing.T, data []byte) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	return doc
}

func digestRootOf(t *testing.T, doc *etree.Document) string {
	t.Helper()
	return digestElement(t, doc.Root())
}

// digestElement serializa el elemento solo y aplica el mismo C14N que el firmador.
// Los fragmentos de la firma declaran sus propios namespaces, así que son autocontenidos.
func digestElement(t *testing.T, el *etree.Element) string {
	t.Helper()
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	data, err := d.WriteToBytes()
	require.NoError(t, err)
	digest, err := signer.DigestC14N(data)
	require.NoError(t, err)
	return digest
}
