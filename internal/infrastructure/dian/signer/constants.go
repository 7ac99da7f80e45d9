// Constantes para firma XAdES (Anexo Técnico 1.9 DIAN).

package signer

// Política de firma DIAN v2.
const (
	SignaturePolicyURLV2 = "https://facturaelectronica.dian.gov.co/politicadefirma/v2/politicadefirmav2.pdf"
	SignaturePolicyDesc  = "Política de firma para facturas electrónicas de la República de Colombia."
)

// SigPolicyHashDigest es el SHA-256 del PDF de la política de firma v2 (Base64).
var SigPolicyHashDigest = "dMoMvtcG5aIzgYo0tIsSQeVJBDnUnfSOfBpxXrmor0Y="

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES     = "http://uri.etsi.org/01903/v1.3.2#"
	NamespaceXAdES141  = "http://uri.etsi.org/01903/v1.4.1#"
	AlgExcC14N         = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2001/04/xmlenc#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"
)

// Rol del firmante exigido por la DIAN para el facturador.
const SignerRoleSupplier = "supplier"

// Marcador del firmador de pruebas. Un documento con este valor nunca es válido ante la DIAN.
const PlaceholderMarker = "NON-CONFORMANT-PLACEHOLDER-SIGNATURE"
