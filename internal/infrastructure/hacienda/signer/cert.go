// Carga de certificado desde .p12 (PKCS#12, el formato que entrega el BCCR/ATV) o par PEM.

package signer

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadCertificate elige el cargador según la extensión del archivo.
func LoadCertificate(path, password string) (tls.Certificate, error) {
	switch strings.ToLower(path[strings.LastIndex(path, ".")+1:]) {
	case "p12", "pfx":
		return LoadFromP12(path, password)
	default:
		return LoadFromPEM(path, "")
	}
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve solo el certificado hoja; Hacienda no exige la cadena.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (por separado o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64), el emisor y el
// serial en decimal, como los pide xades:IssuerSerial.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}
