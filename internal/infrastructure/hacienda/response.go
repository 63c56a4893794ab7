package hacienda

import (
	"strings"

	"github.com/beevik/etree"
)

// detailMessage extrae DetalleMensaje (o Mensaje) del MensajeHacienda de respuesta.
func detailMessage(xmlBytes []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return ""
	}
	for _, path := range []string{"//DetalleMensaje", "//Mensaje"} {
		if e := doc.FindElement(path); e != nil {
			if msg := strings.TrimSpace(e.Text()); msg != "" {
				return msg
			}
		}
	}
	return ""
}
