// Package views вычисляет то, что показывают экраны клиента:
// нормализованный этап, алерты, порядок листинга, фильтры и KPI.
package views

import (
	"slices"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// Alertas
const (
	AlertaBloqueada  = "BLOQUEADA"
	AlertaSinETA     = "SIN_ETA"
	AlertaETAVencida = "ETA_VENCIDA"
)

// Filtros del listado. Any other value filters by etapa.
const (
	FiltroTodas   = "TODAS"
	FiltroAlertas = "ALERTAS"
)

const dateLayout = "2006-01-02"

// Item операция, подготовленная для отображения
type Item struct {
	Eta      time.Time // zero when the operación has no eta
	Op       *models.Operacion
	Etapa    string
	Alerta   string
	Finanzas models.Finanzas
	// FinanzasErr is set when adelantos or pagos could not be decoded
	FinanzasErr error
}

// Normalize computes etapa, alerta and finanzas of op as of now.
func Normalize(op *models.Operacion, now time.Time) Item {
	var log models.Logistica
	_ = models.DecodeField(op, models.FieldLogistica, &log)

	fin, finErr := models.ResumenFinanzas(op)
	it := Item{
		Op:          op,
		Etapa:       log.Etapa,
		Finanzas:    fin,
		FinanzasErr: finErr,
	}
	if it.Etapa == "" {
		it.Etapa = op.String(models.FieldEstado)
	}
	if it.Etapa == "" {
		it.Etapa = models.EstadoPlanificada
	}

	if log.Eta != "" {
		if eta, err := time.ParseInLocation(dateLayout, log.Eta, now.Location()); err == nil {
			it.Eta = eta
		}
	}

	today := startOfDay(now)
	switch {
	case it.Etapa == models.EstadoBloqueada:
		it.Alerta = AlertaBloqueada
	case it.Etapa == models.EstadoEnTransito && it.Eta.IsZero():
		it.Alerta = AlertaSinETA
	case !it.Eta.IsZero() && it.Eta.Before(today) && it.Etapa != models.EstadoEntregada:
		it.Alerta = AlertaETAVencida
	}

	return it
}

// Prioridad orden del listado: menor primero
func Prioridad(it Item) int {
	switch {
	case it.Etapa == models.EstadoBloqueada:
		return 1
	case it.Etapa == models.EstadoEnTransito && it.Alerta != "":
		return 2
	case it.Etapa == models.EstadoEnDespacho:
		return 3
	case it.Etapa == models.EstadoArribada:
		return 4
	case it.Etapa == models.EstadoEnTransito:
		return 5
	case it.Etapa == models.EstadoPlanificada:
		return 6
	default:
		return 9
	}
}

// Listado normalizes ops, orders them by priority (stable, ties by id) and
// applies filtro.
func Listado(ops []*models.Operacion, filtro string, now time.Time) []Item {
	items := make([]Item, 0, len(ops))
	for _, op := range ops {
		items = append(items, Normalize(op, now))
	}

	// GetAll не гарантирует порядок, поэтому сначала по id
	slices.SortFunc(items, func(a, b Item) int {
		if p := Prioridad(a) - Prioridad(b); p != 0 {
			return p
		}
		switch {
		case a.Op.ID < b.Op.ID:
			return -1
		case a.Op.ID > b.Op.ID:
			return 1
		}
		return 0
	})

	return Filtrar(items, filtro)
}

// Filtrar keeps the items matching filtro
func Filtrar(items []Item, filtro string) []Item {
	switch filtro {
	case "", FiltroTodas:
		return items
	case FiltroAlertas:
		return slices.DeleteFunc(slices.Clone(items), func(it Item) bool { return it.Alerta == "" })
	default:
		return slices.DeleteFunc(slices.Clone(items), func(it Item) bool { return it.Etapa != filtro })
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
