package views

import (
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

const proximosDias = 7

// KPIs tablero principal
type KPIs struct {
	Activas         int `json:"activas"`
	EnTransito      int `json:"en_transito"`
	DocsPendientes  int `json:"docs_pendientes"`
	PagosPendientes int `json:"pagos_pendientes"`
}

// LogisticaKPIs tablero de logística
type LogisticaKPIs struct {
	EnTransito int `json:"en_transito"`
	ConAlertas int `json:"con_alertas"`
	Proximos   int `json:"proximos"` // EN_TRANSITO con eta en los próximos 7 días
	Bloqueadas int `json:"bloqueadas"`
}

// CalcularKPIs counts the dashboard indicators over non-deleted ops.
func CalcularKPIs(ops []*models.Operacion) KPIs {
	var k KPIs
	for _, op := range ops {
		if op.Deleted {
			continue
		}
		k.Activas++

		switch op.String(models.FieldEstado) {
		case models.EstadoEnTransito, models.EstadoEnChile:
			k.EnTransito++
		}

		if DocumentosPendientes(op) > 0 {
			k.DocsPendientes++
		}
		// pagos ilegibles cuentan como pendientes
		if fin, err := models.ResumenFinanzas(op); err != nil || fin.Saldo > 0 {
			k.PagosPendientes++
		}
	}
	return k
}

// CalcularLogisticaKPIs counts logistics indicators over normalized items.
func CalcularLogisticaKPIs(items []Item, now time.Time) LogisticaKPIs {
	today := startOfDay(now)
	limit := today.AddDate(0, 0, proximosDias)

	var k LogisticaKPIs
	for _, it := range items {
		if it.Alerta != "" {
			k.ConAlertas++
		}
		switch it.Etapa {
		case models.EstadoEnTransito:
			k.EnTransito++
			if !it.Eta.IsZero() && !it.Eta.Before(today) && !it.Eta.After(limit) {
				k.Proximos++
			}
		case models.EstadoBloqueada:
			k.Bloqueadas++
		}
	}
	return k
}

// DocumentosPendientes returns the number of documents not yet received.
func DocumentosPendientes(op *models.Operacion) int {
	var docs []models.Documento
	if err := models.DecodeField(op, models.FieldDocumentos, &docs); err != nil {
		return 0
	}

	n := 0
	for _, d := range docs {
		if !d.Recibido {
			n++
		}
	}
	return n
}
