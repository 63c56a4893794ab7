// Firma XAdES-EPES enveloped para comprobantes electrónicos de Hacienda.
// El nodo ds:Signature se agrega como último hijo del elemento raíz.

package signer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

var _ hacienda.Signer = (*DigitalSignatureService)(nil)

// DigitalSignatureService firma con un certificado fijo cargado al arrancar.
type DigitalSignatureService struct {
	cert x509.Certificate
	key  *rsa.PrivateKey
	now  func() time.Time
}

// NewDigitalSignatureService valida que el certificado traiga llave RSA.
func NewDigitalSignatureService(cert tls.Certificate) (*DigitalSignatureService, error) {
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("hacienda: certificado vacío")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("hacienda: el certificado debe incluir llave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("hacienda: parsear certificado: %w", err)
	}
	return &DigitalSignatureService{cert: *x509Cert, key: priv, now: time.Now}, nil
}

// Sign implementa hacienda.Signer.
func (s *DigitalSignatureService) Sign(ctx context.Context, xmlBytes []byte) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("hacienda: XML vacío")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1) Digest del documento (C14N, sin firma).
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("hacienda: canonicalizar documento: %w", err)
	}
	docDigestB64 := digestB64(canonicalDoc)
	rootNS, err := rootNamespace(xmlBytes)
	if err != nil {
		return nil, err
	}

	// 2) SignedProperties y su digest.
	signingTime := s.now().In(time.FixedZone("CST", -6*3600)).Format(time.RFC3339)
	certDigest, issuerName, serial := CertDigestAndIssuerSerial(&s.cert)
	signedProps := buildSignedProperties(rootNS, signingTime, certDigest, issuerName, serial)
	canonicalProps, err := canonicalizeXML([]byte(signedProps))
	if err != nil {
		return nil, fmt.Errorf("hacienda: canonicalizar SignedProperties: %w", err)
	}

	// 3) SignedInfo firmado con RSA-SHA256.
	signedInfo := buildSignedInfo(rootNS, docDigestB64, digestB64(canonicalProps))
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfo))
	if err != nil {
		return nil, fmt.Errorf("hacienda: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("hacienda: firmar SignedInfo: %w", err)
	}

	certB64 := base64.StdEncoding.EncodeToString(s.cert.Raw)
	signatureXML := buildSignature(signedInfo, base64.StdEncoding.EncodeToString(signatureValue), certB64, signedProps)
	return injectSignature(xmlBytes, signatureXML)
}

// canonicalizeXML C14N inclusiva del elemento raíz (sin declaración XML ni espacios externos).
func canonicalizeXML(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("documento sin raíz")
	}
	only := etree.NewDocument()
	only.SetRoot(doc.Root().Copy())
	raw, err := only.WriteToBytes()
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// rootNamespace namespace por defecto del comprobante. SignedInfo y SignedProperties lo heredan
// dentro del documento, así que se declara también al calcular sus digests.
func rootNamespace(data []byte) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return "", fmt.Errorf("hacienda: parsear XML: %w", err)
	}
	if doc.Root() == nil {
		return "", fmt.Errorf("hacienda: documento sin raíz")
	}
	return doc.Root().SelectAttrValue("xmlns", ""), nil
}

func nsDecl(rootNS string) string {
	if rootNS == "" {
		return ""
	}
	return ` xmlns="` + escapeXML(rootNS) + `"`
}

func digestB64(data []byte) string {
	h := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

func buildSignedInfo(rootNS, docDigestB64, propsDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo` + nsDecl(rootNS) + ` xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference Id="` + DocumentReference + `" URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`<ds:Reference Type="` + TypeSignedProps + `" URI="#` + SignedPropsID + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignedProperties(rootNS, signingTime, certDigestB64, issuerName, serial string) string {
	var sb strings.Builder
	sb.WriteString(`<xades:SignedProperties` + nsDecl(rootNS) + ` xmlns:ds="` + NamespaceDS + `" xmlns:xades="` + NamespaceXAdES + `" Id="` + SignedPropsID + `">`)
	sb.WriteString(`<xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SigningTime>` + signingTime + `</xades:SigningTime>`)
	sb.WriteString(`<xades:SigningCertificate><xades:Cert><xades:CertDigest><ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + certDigestB64 + `</ds:DigestValue></xades:CertDigest>`)
	sb.WriteString(`<xades:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName><ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></xades:IssuerSerial></xades:Cert></xades:SigningCertificate>`)
	sb.WriteString(`<xades:SignaturePolicyIdentifier><xades:SignaturePolicyId><xades:SigPolicyId><xades:Identifier>` + escapeXML(SignaturePolicyURL) + `</xades:Identifier></xades:SigPolicyId>`)
	sb.WriteString(`<xades:SigPolicyHash><ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod><ds:DigestValue>` + SigPolicyHashDigest + `</ds:DigestValue></xades:SigPolicyHash>`)
	sb.WriteString(`</xades:SignaturePolicyId></xades:SignaturePolicyIdentifier>`)
	sb.WriteString(`</xades:SignedSignatureProperties>`)
	sb.WriteString(`<xades:SignedDataObjectProperties><xades:DataObjectFormat ObjectReference="#` + DocumentReference + `"><xades:MimeType>text/xml</xades:MimeType><xades:Encoding>UTF-8</xades:Encoding></xades:DataObjectFormat></xades:SignedDataObjectProperties>`)
	sb.WriteString(`</xades:SignedProperties>`)
	return sb.String()
}

func buildSignature(signedInfoXML, signatureValueB64, certB64, signedProps string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue Id="` + SignatureValueID + `">` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`<ds:Object><xades:QualifyingProperties xmlns:xades="` + NamespaceXAdES + `" Target="#` + SignatureID + `">`)
	sb.WriteString(signedProps)
	sb.WriteString(`</xades:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func injectSignature(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("hacienda: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("hacienda: documento sin raíz")
	}
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("hacienda: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		root.AddChild(sigRoot)
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("hacienda: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}
