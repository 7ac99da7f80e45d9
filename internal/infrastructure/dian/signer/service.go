// Servicio de firma digital XAdES-BES para factura electrónica DIAN (Anexo 1.9).
// Inyecta <ds:Signature> en el segundo <ext:ExtensionContent> del XML.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/ucarion/c14n"
)

var colombia = time.FixedZone("COT", -5*60*60)

// XAdESSigner implementa la firma XAdES-BES con política DIAN e inyecta el nodo en el XML.
type XAdESSigner struct {
	now func() time.Time
}

// NewXAdESSigner crea el servicio.
func NewXAdESSigner() *XAdESSigner {
	return &XAdESSigner{now: time.Now}
}

// WithClock fija el reloj usado para xades:SigningTime.
func (s *XAdESSigner) WithClock(now func() time.Time) *XAdESSigner {
	s.now = now
	return s
}

// Sign implementa pkg/dian.Signer. Firma el XML e inyecta ds:Signature en el segundo ExtensionContent.
// Cualquier fallo devuelve domain.ErrSigning; nunca se devuelve el XML sin firmar.
func (s *XAdESSigner) Sign(xmlDoc []byte, certificate []byte, password string) ([]byte, error) {
	if len(xmlDoc) == 0 {
		return nil, fmt.Errorf("%w: XML vacío", domain.ErrSigning)
	}
	creds, err := LoadFromP12Bytes(certificate, password)
	if err != nil {
		return nil, err
	}
	return s.SignWithCredentials(xmlDoc, creds)
}

// SignWithCredentials firma con credenciales ya decodificadas.
func (s *XAdESSigner) SignWithCredentials(xmlDoc []byte, creds *Credentials) ([]byte, error) {
	doc, target, err := locateSignatureSlot(xmlDoc)
	if err != nil {
		return nil, err
	}

	ids := newSignatureIDs()

	// 1) Digest del documento. Reference URI="#invoice-id" con transformación enveloped:
	//    el slot todavía está vacío, así que el documento actual es el resultado de la transformación.
	docDigest, err := digestRoot(doc)
	if err != nil {
		return nil, err
	}

	// 2) KeyInfo con la cadena X.509
	keyInfoXML := buildKeyInfo(ids, creds)
	keyInfoDigest, err := digestFragment(keyInfoXML)
	if err != nil {
		return nil, err
	}

	// 3) SignedProperties (SigningTime, SigningCertificate, política, rol)
	signedPropsXML := buildSignedProperties(ids, creds, s.now().In(colombia))
	signedPropsDigest, err := digestFragment(signedPropsXML)
	if err != nil {
		return nil, err
	}

	// 4) SignedInfo canonicalizado y firmado con RSA-SHA256
	signedInfoXML := buildSignedInfo(ids, docDigest, keyInfoDigest, signedPropsDigest)
	canonicalSignedInfo, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(canonicalSignedInfo)
	sig, err := rsa.SignPKCS1v15(rand.Reader, creds.PrivateKey, crypto.SHA256, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: firmar SignedInfo: %v", domain.ErrSigning, err)
	}

	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + ids.signature + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue Id="` + ids.signatureValue + `">` + base64.StdEncoding.EncodeToString(sig) + `</ds:SignatureValue>`)
	sb.WriteString(keyInfoXML)
	sb.WriteString(`<ds:Object><xades:QualifyingProperties xmlns:xades="` + NamespaceXAdES + `" xmlns:xades141="` + NamespaceXAdES141 + `" Target="#` + ids.signature + `">`)
	sb.WriteString(signedPropsXML)
	sb.WriteString(`</xades:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)

	return inject(doc, target, sb.String())
}

type signatureIDs struct {
	signature      string
	reference      string
	signatureValue string
	keyInfo        string
	signedProps    string
}

func newSignatureIDs() signatureIDs {
	base := "xmlsig-" + uuid.NewString()
	return signatureIDs{
		signature:      base,
		reference:      base + "-ref0",
		signatureValue: base + "-sigvalue",
		keyInfo:        base + "-keyinfo",
		signedProps:    base + "-signedprops",
	}
}

func buildSignedInfo(ids signatureIDs, docDigest, keyInfoDigest, signedPropsDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgExcC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)

	sb.WriteString(`<ds:Reference Id="` + ids.reference + `" URI="#` + dian.InvoiceElementID + `">`)
	sb.WriteString(`<ds:Transforms>`)
	sb.WriteString(`<ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgExcC14N + `"></ds:Transform>`)
	sb.WriteString(`</ds:Transforms>`)
	writeDigest(&sb, docDigest)
	sb.WriteString(`</ds:Reference>`)

	sb.WriteString(`<ds:Reference URI="#` + ids.keyInfo + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + AlgExcC14N + `"></ds:Transform></ds:Transforms>`)
	writeDigest(&sb, keyInfoDigest)
	sb.WriteString(`</ds:Reference>`)

	sb.WriteString(`<ds:Reference Type="` + TypeSignedProps + `" URI="#` + ids.signedProps + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + AlgExcC14N + `"></ds:Transform></ds:Transforms>`)
	writeDigest(&sb, signedPropsDigest)
	sb.WriteString(`</ds:Reference>`)

	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func writeDigest(sb *strings.Builder, digest string) {
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + digest + `</ds:DigestValue>`)
}

func buildKeyInfo(ids signatureIDs, creds *Credentials) string {
	var sb strings.Builder
	sb.WriteString(`<ds:KeyInfo xmlns:ds="` + NamespaceDS + `" Id="` + ids.keyInfo + `"><ds:X509Data>`)
	for _, c := range creds.Chain {
		sb.WriteString(`<ds:X509Certificate>` + base64.StdEncoding.EncodeToString(c.Raw) + `</ds:X509Certificate>`)
	}
	sb.WriteString(`</ds:X509Data></ds:KeyInfo>`)
	return sb.String()
}

func buildSignedProperties(ids signatureIDs, creds *Credentials, signingTime time.Time) string {
	var sb strings.Builder
	sb.WriteString(`<xades:SignedProperties xmlns:xades="` + NamespaceXAdES + `" xmlns:ds="` + NamespaceDS + `" Id="` + ids.signedProps + `">`)
	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + signingTime.Format("2006-01-02T15:04:05-07:00") + `</xades:SigningTime>`)

	sb.WriteString(`<xades:SigningCertificate>`)
	for _, c := range creds.Chain {
		digest, issuer, serial := CertDigestAndIssuerSerial(c)
		sb.WriteString(`<xades:Cert><xades:CertDigest>`)
		writeDigest(&sb, digest)
		sb.WriteString(`</xades:CertDigest><xades:IssuerSerial>`)
		sb.WriteString(`<ds:X509IssuerName>` + escapeXML(issuer) + `</ds:X509IssuerName>`)
		sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber>`)
		sb.WriteString(`</xades:IssuerSerial></xades:Cert>`)
	}
	sb.WriteString(`</xades:SigningCertificate>`)

	// SignaturePolicyIdentifier (DIAN v2)
	sb.WriteString(`<xades:SignaturePolicyIdentifier><xades:SignaturePolicyId><xades:SigPolicyId>`)
	sb.WriteString(`<xades:Identifier>` + SignaturePolicyURLV2 + `</xades:Identifier>`)
	sb.WriteString(`<xades:Description>` + SignaturePolicyDesc + `</xades:Description>`)
	sb.WriteString(`</xades:SigPolicyId><xades:SigPolicyHash>`)
	writeDigest(&sb, SigPolicyHashDigest)
	sb.WriteString(`</xades:SigPolicyHash></xades:SignaturePolicyId></xades:SignaturePolicyIdentifier>`)

	sb.WriteString(`<xades:SignerRole><xades:ClaimedRoles><xades:ClaimedRole>` + SignerRoleSupplier + `</xades:ClaimedRole></xades:ClaimedRoles></xades:SignerRole>`)
	sb.WriteString(`</xades:SignedSignatureProperties>`)
	sb.WriteString(`</xades:SignedProperties>`)
	return sb.String()
}

// canonicalize aplica C14N exclusiva (ucarion/c14n) sobre un fragmento autocontenido.
func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalizar: %v", domain.ErrSigning, err)
	}
	return out, nil
}

// DigestC14N devuelve el SHA-256 (Base64) del fragmento canonicalizado.
func DigestC14N(data []byte) (string, error) {
	canonical, err := canonicalize(data)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

func digestFragment(fragment string) (string, error) {
	return DigestC14N([]byte(fragment))
}

// digestRoot canonicaliza solo el elemento raíz (sin declaración XML ni nodos fuera de él).
func digestRoot(doc *etree.Document) (string, error) {
	rootOnly := etree.NewDocument()
	rootOnly.SetRoot(doc.Root().Copy())
	data, err := rootOnly.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("%w: serializar documento: %v", domain.ErrSigning, err)
	}
	return DigestC14N(data)
}

// locateSignatureSlot parsea el XML y ubica el segundo ext:ExtensionContent, que debe estar vacío.
func locateSignatureSlot(xmlDoc []byte) (*etree.Document, *etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlDoc); err != nil {
		return nil, nil, fmt.Errorf("%w: parsear XML: %v", domain.ErrSigning, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("%w: documento sin raíz", domain.ErrSigning)
	}
	if root.SelectAttrValue("Id", "") != dian.InvoiceElementID {
		return nil, nil, fmt.Errorf("%w: el elemento raíz debe tener Id=%q", domain.ErrSigning, dian.InvoiceElementID)
	}
	contents := root.FindElements("./UBLExtensions/UBLExtension/ExtensionContent")
	if len(contents) < 2 {
		return nil, nil, fmt.Errorf("%w: no se encontró el segundo ext:ExtensionContent para inyectar la firma", domain.ErrSigning)
	}
	slot := contents[1]
	if len(slot.ChildElements()) > 0 {
		return nil, nil, fmt.Errorf("%w: el documento ya está firmado", domain.ErrSigning)
	}
	// Sin texto residual: tras la transformación enveloped el slot debe quedar idéntico al digerido.
	for len(slot.Child) > 0 {
		slot.RemoveChildAt(0)
	}
	return doc, slot, nil
}

func inject(doc *etree.Document, slot *etree.Element, signatureXML string) ([]byte, error) {
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("%w: parsear Signature: %v", domain.ErrSigning, err)
	}
	slot.AddChild(sigDoc.Root())
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: serializar XML firmado: %v", domain.ErrSigning, err)
	}
	return out, nil
}

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var _ dian.Signer = (*XAdESSigner)(nil)
