package signer

import (
	"fmt"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/pkg/dian"

	"github.com/beevik/etree"
)

// PlaceholderSigner deja un ds:Signature con la misma ubicación y forma que XAdESSigner
// pero sin valor criptográfico. Solo para ambiente de pruebas sin certificado.
type PlaceholderSigner struct{}

// NewPlaceholderSigner crea el firmador de pruebas.
func NewPlaceholderSigner() *PlaceholderSigner {
	return &PlaceholderSigner{}
}

// Sign ignora el certificado e inyecta una firma marcada como NON-CONFORMANT.
func (p *PlaceholderSigner) Sign(xmlDoc []byte, _ []byte, _ string) ([]byte, error) {
	if len(xmlDoc) == 0 {
		return nil, fmt.Errorf("%w: XML vacío", domain.ErrSigning)
	}
	doc, slot, err := locateSignatureSlot(xmlDoc)
	if err != nil {
		return nil, err
	}
	docDigest, err := digestRoot(doc)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="placeholder-signature">`)
	sb.WriteString(`<ds:SignedInfo>`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgExcC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference URI="#` + dian.InvoiceElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	writeDigest(&sb, docDigest)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	sb.WriteString(`<ds:SignatureValue>` + PlaceholderMarker + `</ds:SignatureValue>`)
	sb.WriteString(`</ds:Signature>`)

	return inject(doc, slot, sb.String())
}

// IsPlaceholderSigned indica si el ds:SignatureValue del XML es el de la firma de pruebas.
// El texto del marcador en otros nodos (notas, descripciones) no cuenta.
func IsPlaceholderSigned(xmlDoc []byte) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlDoc); err != nil || doc.Root() == nil {
		return false
	}
	for _, v := range doc.Root().FindElements(".//Signature/SignatureValue") {
		if v.Space == "ds" && strings.TrimSpace(v.Text()) == PlaceholderMarker {
			return true
		}
	}
	return false
}

var _ dian.Signer = (*PlaceholderSigner)(nil)
