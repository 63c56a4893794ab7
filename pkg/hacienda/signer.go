// Interfaz para firma digital de comprobantes XML (XAdES-EPES, Hacienda).

package hacienda

import "context"

// Signer firma el XML de un comprobante y devuelve el XML con ds:Signature como último
// hijo del elemento raíz.
type Signer interface {
	Sign(ctx context.Context, unsigned []byte) ([]byte, error)
}
