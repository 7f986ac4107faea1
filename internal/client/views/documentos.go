package views

import (
	"cmp"
	"slices"
	"strings"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// Tipos de documento
const (
	TipoFactura     = "FACTURA"
	TipoBL          = "BL"
	TipoPackingList = "PACKING_LIST"
	TipoOtro        = "OTRO"
)

// TiposDocumento known document types, in display order
var TiposDocumento = []string{TipoFactura, TipoBL, TipoPackingList, TipoOtro}

// DocumentoItem документ вместе с операцией, к которой он относится
type DocumentoItem struct {
	OperacionID string `json:"operacion_id"`
	Proveedor   string `json:"proveedor"`
	// Index позиция в documentos операции, как в "doc recibido <id> <n>"
	Index int `json:"index"`
	models.Documento
}

// DocumentosKPIs counts per tipo; unknown tipos are counted under their own name.
type DocumentosKPIs struct {
	PorTipo map[string]int `json:"por_tipo"`
	Total   int            `json:"total"`
}

// Documentos flattens the documents of non-deleted ops, ordered by
// operación id and position. Empty tipo becomes OTRO and empty nombre
// "Sin nombre". tipo filters by type unless empty or TODOS.
func Documentos(ops []*models.Operacion, tipo string) []DocumentoItem {
	tipo = strings.ToUpper(strings.TrimSpace(tipo))

	sorted := slices.Clone(ops)
	slices.SortFunc(sorted, func(a, b *models.Operacion) int { return cmp.Compare(a.ID, b.ID) })

	var out []DocumentoItem
	for _, op := range sorted {
		if op.Deleted {
			continue
		}
		var docs []models.Documento
		if err := models.DecodeField(op, models.FieldDocumentos, &docs); err != nil {
			continue
		}

		proveedor := cmp.Or(strings.TrimSpace(op.String(models.FieldProveedor)), sinProveedor)
		for i, d := range docs {
			d.Tipo = cmp.Or(strings.ToUpper(strings.TrimSpace(d.Tipo)), TipoOtro)
			d.Nombre = cmp.Or(strings.TrimSpace(d.Nombre), "Sin nombre")
			if tipo != "" && tipo != FiltroTodos && d.Tipo != tipo {
				continue
			}
			out = append(out, DocumentoItem{
				OperacionID: op.ID,
				Proveedor:   proveedor,
				Index:       i,
				Documento:   d,
			})
		}
	}
	return out
}

// ContarDocumentos counts items per tipo. Known tipos are always present.
func ContarDocumentos(items []DocumentoItem) DocumentosKPIs {
	k := DocumentosKPIs{PorTipo: make(map[string]int, len(TiposDocumento))}
	for _, t := range TiposDocumento {
		k.PorTipo[t] = 0
	}
	for _, it := range items {
		k.PorTipo[it.Tipo]++
		k.Total++
	}
	return k
}
