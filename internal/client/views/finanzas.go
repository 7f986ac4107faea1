package views

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// Filtros de saldo
const (
	SaldoTodas     = "TODAS"
	SaldoPendiente = "PENDIENTE"
	SaldoOK        = "OK"
)

// Órdenes de la tabla de finanzas
const (
	OrdenSaldoDesc    = "SALDO_DESC"
	OrdenTotalDesc    = "TOTAL_DESC"
	OrdenProveedorAsc = "PROVEEDOR_ASC"
	OrdenProgresoAsc  = "PROGRESO_ASC"
)

// FiltroTodos disables the banco and tipo filters
const FiltroTodos = "TODOS"

// SinBanco groups movimientos without a bank
const SinBanco = "SIN BANCO"

const sinProveedor = "-"

// ErrFiltro is returned for an unknown saldo filter or orden
var ErrFiltro = errors.New("invalid filter")

// FilaFinanzas una fila de la pantalla de finanzas
type FilaFinanzas struct {
	ID        string `json:"id"`
	Proveedor string `json:"proveedor"`
	models.Finanzas
	// Bancos con al menos un movimiento ACTIVO
	Bancos []string `json:"bancos,omitempty"`
	Err    error    `json:"-"`
}

// TotalesMoneda totales de las operaciones de una moneda
type TotalesMoneda struct {
	Moneda    string  `json:"moneda"`
	Total     float64 `json:"total"`
	Pagado    float64 `json:"pagado"`
	Pendiente float64 `json:"pendiente"`
}

// Resumen métricas globales. Montos de distintas monedas se suman tal cual,
// PorMoneda los separa.
type Resumen struct {
	Total        float64         `json:"total"`
	Adelantos    float64         `json:"adelantos"`
	Pagado       float64         `json:"pagado"`
	Pendiente    float64         `json:"pendiente"`
	ConPendiente int             `json:"con_pendiente"`
	PorMoneda    []TotalesMoneda `json:"por_moneda"`
}

// FiltroFinanzas criterios de la tabla. Empty fields mean "all".
type FiltroFinanzas struct {
	Query  string
	Saldo  string
	Moneda string
	Banco  string
	Orden  string
}

// BancoStats uso de un banco en movimientos ACTIVO
type BancoStats struct {
	Banco       string  `json:"banco"`
	Movimientos int     `json:"movimientos"`
	Total       float64 `json:"total"`
	Operaciones int     `json:"operaciones"`
}

// FilasFinanzas builds one row per non-deleted operación, ordered by id.
func FilasFinanzas(ops []*models.Operacion) []FilaFinanzas {
	filas := make([]FilaFinanzas, 0, len(ops))
	for _, op := range ops {
		if op.Deleted {
			continue
		}
		fin, err := models.ResumenFinanzas(op)
		fin.Moneda = strings.ToUpper(fin.Moneda)

		f := FilaFinanzas{
			ID:        op.ID,
			Proveedor: strings.TrimSpace(op.String(models.FieldProveedor)),
			Finanzas:  fin,
			Err:       err,
		}
		if f.Proveedor == "" {
			f.Proveedor = sinProveedor
		}
		for _, m := range movimientosActivos(op) {
			if b := normBanco(m.Banco); !slices.Contains(f.Bancos, b) {
				f.Bancos = append(f.Bancos, b)
			}
		}
		filas = append(filas, f)
	}

	slices.SortFunc(filas, func(a, b FilaFinanzas) int { return cmp.Compare(a.ID, b.ID) })
	return filas
}

// ResumenGlobal sums the rows; PorMoneda is ordered by total, largest first.
func ResumenGlobal(filas []FilaFinanzas) Resumen {
	var r Resumen
	porMoneda := map[string]*TotalesMoneda{}
	for _, f := range filas {
		r.Total += f.Total
		r.Adelantos += f.Adelantos
		r.Pagado += f.Pagado
		r.Pendiente += f.Saldo
		if f.Saldo > 0 {
			r.ConPendiente++
		}

		m, ok := porMoneda[f.Moneda]
		if !ok {
			m = &TotalesMoneda{Moneda: f.Moneda}
			porMoneda[f.Moneda] = m
		}
		m.Total += f.Total
		m.Pagado += f.Pagado
		m.Pendiente += f.Saldo
	}

	r.PorMoneda = make([]TotalesMoneda, 0, len(porMoneda))
	for _, m := range porMoneda {
		r.PorMoneda = append(r.PorMoneda, *m)
	}
	slices.SortFunc(r.PorMoneda, func(a, b TotalesMoneda) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Moneda, b.Moneda)
	})
	return r
}

// FiltrarFinanzas applies f to filas and orders the result. The input is
// not modified.
func FiltrarFinanzas(filas []FilaFinanzas, f FiltroFinanzas) ([]FilaFinanzas, error) {
	saldo := strings.ToUpper(cmp.Or(f.Saldo, SaldoTodas))
	switch saldo {
	case SaldoTodas, SaldoPendiente, SaldoOK:
	default:
		return nil, fmt.Errorf("%w: saldo %q", ErrFiltro, f.Saldo)
	}
	orden := strings.ToUpper(cmp.Or(f.Orden, OrdenSaldoDesc))
	cmpFn, err := ordenFinanzas(orden)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	moneda := strings.ToUpper(cmp.Or(f.Moneda, FiltroTodas))
	banco := cmp.Or(strings.TrimSpace(f.Banco), FiltroTodos)

	out := slices.DeleteFunc(slices.Clone(filas), func(r FilaFinanzas) bool {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.ID), query) &&
			!strings.Contains(strings.ToLower(r.Proveedor), query) {
			return true
		}
		switch {
		case saldo == SaldoPendiente && r.Saldo <= 0,
			saldo == SaldoOK && r.Saldo != 0:
			return true
		}
		if moneda != FiltroTodas && r.Moneda != moneda {
			return true
		}
		if banco != FiltroTodos && !slices.Contains(r.Bancos, banco) {
			return true
		}
		return false
	})

	slices.SortStableFunc(out, cmpFn)
	return out, nil
}

func ordenFinanzas(orden string) (func(a, b FilaFinanzas) int, error) {
	switch orden {
	case OrdenSaldoDesc:
		return func(a, b FilaFinanzas) int { return cmp.Compare(b.Saldo, a.Saldo) }, nil
	case OrdenTotalDesc:
		return func(a, b FilaFinanzas) int { return cmp.Compare(b.Total, a.Total) }, nil
	case OrdenProgresoAsc:
		return func(a, b FilaFinanzas) int { return cmp.Compare(a.Progreso, b.Progreso) }, nil
	case OrdenProveedorAsc:
		// Collator не потокобезопасен
		col := collate.New(language.Spanish, collate.IgnoreCase)
		return func(a, b FilaFinanzas) int { return col.CompareString(a.Proveedor, b.Proveedor) }, nil
	default:
		return nil, fmt.Errorf("%w: orden %q", ErrFiltro, orden)
	}
}

// Monedas returns the currencies present in filas, sorted.
func Monedas(filas []FilaFinanzas) []string {
	var out []string
	for _, f := range filas {
		if !slices.Contains(out, f.Moneda) {
			out = append(out, f.Moneda)
		}
	}
	slices.Sort(out)
	return out
}

// RankingBancos aggregates ACTIVO movimientos with a positive amount per
// bank, largest volume first. Amounts of different currencies are summed.
func RankingBancos(ops []*models.Operacion) []BancoStats {
	stats := map[string]*BancoStats{}
	opsPorBanco := map[string]map[string]struct{}{}

	for _, op := range ops {
		if op.Deleted {
			continue
		}
		for _, m := range movimientosActivos(op) {
			b := normBanco(m.Banco)
			s, ok := stats[b]
			if !ok {
				s = &BancoStats{Banco: b}
				stats[b] = s
				opsPorBanco[b] = map[string]struct{}{}
			}
			s.Movimientos++
			s.Total += m.Monto
			opsPorBanco[b][op.ID] = struct{}{}
		}
	}

	ranking := make([]BancoStats, 0, len(stats))
	for b, s := range stats {
		s.Operaciones = len(opsPorBanco[b])
		ranking = append(ranking, *s)
	}
	slices.SortFunc(ranking, func(a, b BancoStats) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Banco, b.Banco)
	})
	return ranking
}

var csvHeader = []string{
	"id", "proveedor", "moneda", "total", "adelantosActivos", "pagadoActivo", "saldo", "progreso",
}

// ExportCSV writes filas as CSV with a header row. Progreso is rounded to
// an integer percentage.
func ExportCSV(w io.Writer, filas []FilaFinanzas) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, f := range filas {
		record := []string{
			f.ID,
			f.Proveedor,
			f.Moneda,
			formatNumber(f.Total),
			formatNumber(f.Adelantos),
			formatNumber(f.Pagado),
			formatNumber(f.Saldo),
			strconv.FormatFloat(math.Round(f.Progreso), 'f', 0, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", f.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// movimientosActivos returns adelantos and pagos in estado ACTIVO with a
// positive amount. Unreadable lists are skipped.
func movimientosActivos(op *models.Operacion) []models.Movimiento {
	var out []models.Movimiento
	for _, field := range []string{models.FieldAdelantos, models.FieldPagos} {
		var movs []models.Movimiento
		if err := models.DecodeField(op, field, &movs); err != nil {
			continue
		}
		for _, m := range movs {
			if m.Estado == models.MovimientoActivo && m.Monto > 0 {
				out = append(out, m)
			}
		}
	}
	return out
}

func normBanco(b string) string {
	if b = strings.TrimSpace(b); b == "" {
		return SinBanco
	}
	return b
}
