// certcheck diagnostica el certificado de firma configurado en HACIENDA_CERT_PATH.
//
// Uso: go run ./cmd/certcheck [ruta.p12] [pin]
// Sin argumentos usa HACIENDA_CERT_PATH / HACIENDA_CERT_PASSWORD.
package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/pos-einvoice-cr/internal/infrastructure/hacienda/signer"
	"github.com/jhoicas/pos-einvoice-cr/pkg/config"
)

func main() {
	certPath, certPass, keyPath := "", "", ""
	if len(os.Args) > 1 {
		certPath = os.Args[1]
		if len(os.Args) > 2 {
			certPass = os.Args[2]
		}
	} else {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
			os.Exit(1)
		}
		certPath, certPass, keyPath = cfg.Hacienda.CertPath, cfg.Hacienda.CertPassword, cfg.Hacienda.CertKeyPath
	}
	if certPath == "" {
		fmt.Fprintln(os.Stderr, "HACIENDA_CERT_PATH vacío")
		os.Exit(2)
	}

	fmt.Println("DIAGNÓSTICO DE CERTIFICADO DE FIRMA (Hacienda)")
	fmt.Printf("Archivo: %s\n", certPath)

	info, err := os.Stat(certPath)
	if err != nil {
		fmt.Printf("ERROR DE ARCHIVO: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Tamaño: %d bytes\n", info.Size())

	load := func() (*x509.Certificate, error) {
		var tlsCert tls.Certificate
		var err error
		if keyPath != "" {
			tlsCert, err = signer.LoadFromPEM(certPath, keyPath)
		} else {
			tlsCert, err = signer.LoadCertificate(certPath, certPass)
		}
		if err != nil {
			return nil, err
		}
		if _, err := signer.NewDigitalSignatureService(tlsCert); err != nil {
			return nil, err
		}
		return x509.ParseCertificate(tlsCert.Certificate[0])
	}
	cert, err := load()
	if err != nil {
		fmt.Printf("ERROR DE PIN O FORMATO: %v\n", err)
		os.Exit(1)
	}

	digest, issuer, serial := signer.CertDigestAndIssuerSerial(cert)
	fmt.Printf("Sujeto:  %s\n", cert.Subject.String())
	fmt.Printf("Emisor:  %s\n", issuer)
	fmt.Printf("Serial:  %s\n", serial)
	fmt.Printf("SHA-256: %s\n", digest)
	fmt.Printf("Vigente: %s a %s\n", cert.NotBefore.Format(time.DateOnly), cert.NotAfter.Format(time.DateOnly))
	if time.Now().After(cert.NotAfter) {
		fmt.Println("ERROR: el certificado está vencido")
		os.Exit(1)
	}
	fmt.Println("OK: certificado y PIN correctos, llave RSA apta para XAdES-EPES.")
}
