package models

import (
	"errors"
	"math"
)

// Finanzas сводка по платежам операции. Учитываются только
// movimientos в estado ACTIVO с положительной суммой.
type Finanzas struct {
	Moneda    string  `json:"moneda"`
	Total     float64 `json:"total"`
	Pagado    float64 `json:"pagado"`
	Adelantos float64 `json:"adelantos"`
	Saldo     float64 `json:"saldo"`
	Progreso  float64 `json:"progreso"` // 0..100
}

// ResumenFinanzas computes the financial summary of an operación.
// A malformed adelantos or pagos list is returned as an error; the summary
// then covers only the lists that decoded.
func ResumenFinanzas(o *Operacion) (Finanzas, error) {
	f := Finanzas{
		Moneda: o.String(FieldMoneda),
		Total:  o.Float(FieldTotalOperacion),
	}
	if f.Moneda == "" {
		f.Moneda = "USD"
	}

	var adelantos, pagos []Movimiento
	err := errors.Join(
		DecodeField(o, FieldAdelantos, &adelantos),
		DecodeField(o, FieldPagos, &pagos),
	)

	for _, m := range adelantos {
		if m.Estado == MovimientoActivo && m.Monto > 0 {
			f.Pagado += m.Monto
			f.Adelantos += m.Monto
		}
	}
	for _, m := range pagos {
		if m.Estado == MovimientoActivo && m.Monto > 0 {
			f.Pagado += m.Monto
		}
	}

	f.Saldo = math.Max(0, f.Total-f.Pagado)
	if f.Total > 0 {
		f.Progreso = math.Min(100, f.Pagado/f.Total*100)
	}

	return f, err
}

// MovimientosField maps a movimiento kind to its payload key.
func MovimientosField(tipo string) (string, bool) {
	switch tipo {
	case MovimientoAdelanto:
		return FieldAdelantos, true
	case MovimientoPago:
		return FieldPagos, true
	default:
		return "", false
	}
}
