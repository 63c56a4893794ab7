package signer

import (
	"context"
	"fmt"

	"github.com/jhoicas/pos-einvoice-cr/pkg/hacienda"
)

var _ hacienda.Signer = Passthrough{}

// Passthrough no firma: devuelve el XML tal cual. Solo para desarrollo y el backend local.
type Passthrough struct{}

// Sign implementa hacienda.Signer.
func (Passthrough) Sign(_ context.Context, unsigned []byte) ([]byte, error) {
	if len(unsigned) == 0 {
		return nil, fmt.Errorf("hacienda: XML vacío")
	}
	return unsigned, nil
}
