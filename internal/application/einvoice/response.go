package einvoice

import (
	"github.com/beevik/etree"
)

// responseXML devuelve el acuse de Hacienda o, si el backend no lo entregó, un resumen
// mínimo con estado y track para dejar constancia del envío.
func responseXML(res *BackendResult) []byte {
	if len(res.ResponseXML) > 0 {
		return res.ResponseXML
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("HaciendaResponse")
	status := res.Status
	if status == "" {
		status = "sent"
	}
	root.CreateElement("status").SetText(status)
	root.CreateElement("track_id").SetText(res.TrackID)
	if res.Backend != "" {
		root.CreateElement("backend").SetText(res.Backend)
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil
	}
	return out
}
