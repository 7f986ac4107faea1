package models

import (
	"encoding/json"
	"fmt"
)

// Ключи бизнес-полей операции
const (
	FieldProveedor      = "proveedor"
	FieldActivo         = "activo"
	FieldMoneda         = "moneda"
	FieldTotalOperacion = "totalOperacion"
	FieldEstado         = "estado"
	FieldObservaciones  = "observaciones"
	FieldCreatedAt      = "createdAt"
	FieldLogistica      = "logistica"
	FieldAdelantos      = "adelantos"
	FieldPagos          = "pagos"
	FieldDocumentos     = "documentos"
	FieldHistorial      = "historial"
	FieldAdelantoMonto  = "adelantoMonto"
)

// Estados (etapas) de una operación
const (
	EstadoCreada      = "CREADA"
	EstadoPlanificada = "PLANIFICADA"
	EstadoCargada     = "CARGADA"
	EstadoEnTransito  = "EN_TRANSITO"
	EstadoEnChile     = "EN_CHILE"
	EstadoArribada    = "ARRIBADA"
	EstadoEnDespacho  = "EN_DESPACHO"
	EstadoEntregada   = "ENTREGADA"
	EstadoBloqueada   = "BLOQUEADA"
)

// Estados lists every estado accepted by the client.
var Estados = []string{
	EstadoCreada,
	EstadoPlanificada,
	EstadoCargada,
	EstadoEnTransito,
	EstadoArribada,
	EstadoEnDespacho,
	EstadoEntregada,
	EstadoBloqueada,
}

// Movimiento kinds and states
const (
	MovimientoAdelanto = "ADELANTO"
	MovimientoPago     = "PAGO"

	MovimientoActivo    = "ACTIVO"
	MovimientoCancelado = "CANCELADO"
)

// Medios de transporte
const (
	MedioMaritimo  = "MARÍTIMO"
	MedioTerrestre = "TERRESTRE"
	MedioAereo     = "AÉREO"
)

// Medios lists the accepted transport modes.
var Medios = []string{MedioMaritimo, MedioTerrestre, MedioAereo}

// Monedas soportadas
var Monedas = []string{"USD", "EUR"}

// DocumentoPendiente estado inicial de un documento
const DocumentoPendiente = "PENDIENTE"

// Movimiento представляет adelanto o pago registrado en la operación.
type Movimiento struct {
	Moneda      string  `json:"moneda"`
	Instrumento string  `json:"instrumento"`
	Banco       string  `json:"banco"`
	Fecha       string  `json:"fecha"`
	Estado      string  `json:"estado"`
	Monto       float64 `json:"monto"`
}

// Documento metadata of an attached document.
type Documento struct {
	Referencia *string `json:"referencia"`
	Nombre     string  `json:"nombre"`
	Tipo       string  `json:"tipo"`
	Estado     string  `json:"estado"`
	Recibido   bool    `json:"recibido"`
}

// Logistica sub-state of an operación.
type Logistica struct {
	Etapa         string `json:"etapa,omitempty"`
	Origen        string `json:"origen,omitempty"`
	Destino       string `json:"destino,omitempty"`
	Medio         string `json:"medio,omitempty"`
	FechaSalida   string `json:"fechaSalida,omitempty"`
	Eta           string `json:"eta,omitempty"`
	FechaArribo   string `json:"fechaArribo,omitempty"`
	Deposito      string `json:"deposito,omitempty"`
	EtaLiberacion string `json:"etaLiberacion,omitempty"`
}

// HistorialEvento одна запись в журнале операции
type HistorialEvento struct {
	ID     string `json:"id,omitempty"`
	Fecha  string `json:"fecha"`
	Evento string `json:"evento"`
}

// DecodeField декодирует поле payload в dst через JSON.
// Отсутствующее поле оставляет dst без изменений.
func DecodeField(o *Operacion, key string, dst any) error {
	v, ok := o.Get(key)
	if !ok || v == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal field %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode field %s: %w", key, err)
	}

	return nil
}

// EncodeField stores v under key in JSON-native form (maps, slices, float64),
// the same shape the payload has after a round trip through storage.
func EncodeField(o *Operacion, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal field %s: %w", key, err)
	}

	var native any
	if err := json.Unmarshal(raw, &native); err != nil {
		return fmt.Errorf("failed to normalize field %s: %w", key, err)
	}

	if o.Data == nil {
		o.Data = map[string]any{}
	}
	o.Data[key] = native

	return nil
}

// IsValidEstado reports whether estado is a known estado.
func IsValidEstado(estado string) bool {
	return contains(Estados, estado)
}

// IsValidMedio reports whether medio is a known transport mode.
func IsValidMedio(medio string) bool {
	return contains(Medios, medio)
}

// IsValidMoneda reports whether moneda is supported.
func IsValidMoneda(moneda string) bool {
	return contains(Monedas, moneda)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
