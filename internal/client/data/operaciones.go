package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/internal/validation"
)

// NuevaOperacion input for CreateOperacion
type NuevaOperacion struct {
	ID             string
	Proveedor      string
	Activo         string
	Moneda         string
	Observaciones  string
	TotalOperacion float64
}

// CreateOperacion creates an operación in estado CREADA
func (s *Service) CreateOperacion(ctx context.Context, in NuevaOperacion) (*models.Operacion, error) {
	id := strings.TrimSpace(in.ID)
	if err := validation.ValidateOperacionID(id); err != nil {
		return nil, invalid(models.FieldID, err.Error())
	}
	if strings.TrimSpace(in.Proveedor) == "" {
		return nil, invalid(models.FieldProveedor, "must not be empty")
	}
	if strings.TrimSpace(in.Activo) == "" {
		return nil, invalid(models.FieldActivo, "must not be empty")
	}
	moneda := strings.ToUpper(strings.TrimSpace(in.Moneda))
	if moneda == "" {
		moneda = "USD"
	}
	if !models.IsValidMoneda(moneda) {
		return nil, invalid(models.FieldMoneda, fmt.Sprintf("unsupported currency %q", in.Moneda))
	}
	if in.TotalOperacion < 0 {
		return nil, invalid(models.FieldTotalOperacion, "must not be negative")
	}

	now := s.now()
	op := &models.Operacion{
		ID: id,
		Data: map[string]any{
			models.FieldProveedor:      strings.TrimSpace(in.Proveedor),
			models.FieldActivo:         strings.TrimSpace(in.Activo),
			models.FieldMoneda:         moneda,
			models.FieldTotalOperacion: in.TotalOperacion,
			models.FieldEstado:         models.EstadoCreada,
			models.FieldObservaciones:  in.Observaciones,
			models.FieldCreatedAt:      now.UTC().Format(time.RFC3339),
			models.FieldAdelantoMonto:  0.0,
		},
	}
	if err := models.EncodeField(op, models.FieldDocumentos, []models.Documento{}); err != nil {
		return nil, err
	}
	if err := models.EncodeField(op, models.FieldHistorial, []models.HistorialEvento{s.evento(now, "Operación creada")}); err != nil {
		return nil, err
	}

	saved, err := s.store.UpdateOperacion(ctx, id, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		if current != nil && !current.Deleted {
			return nil, nil, invalid(models.FieldID, fmt.Sprintf("operacion %s already exists", id))
		}

		fresh := op.Clone()
		if current != nil {
			// ключи удаленной операции обнуляются явно, сервер сливает поверхностно
			for key := range models.CleanPayload(current.Data) {
				if _, ok := fresh.Data[key]; !ok {
					fresh.Data[key] = nil
				}
			}
		}

		stamp := s.stamp(current)
		return models.MergeOperacion(nil, fresh, stamp), newJob(id, models.OpUpsert, stamp), nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// CambiarEstado sets the estado of an operación
func (s *Service) CambiarEstado(ctx context.Context, id, estado string) (*models.Operacion, error) {
	if !models.IsValidEstado(estado) {
		return nil, invalid(models.FieldEstado, fmt.Sprintf("unknown estado %q", estado))
	}

	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		patch.Data[models.FieldEstado] = estado
		return "Estado cambiado a " + estado, nil
	})
}

// RegistrarMovimiento adds an adelanto or pago in estado ACTIVO.
// The amount must be positive and not exceed the outstanding saldo.
func (s *Service) RegistrarMovimiento(ctx context.Context, id, tipo string, mov models.Movimiento) (*models.Operacion, error) {
	field, ok := models.MovimientosField(tipo)
	if !ok {
		return nil, invalid("tipo", fmt.Sprintf("unknown movimiento %q", tipo))
	}
	if mov.Monto <= 0 {
		return nil, invalid("monto", "must be positive")
	}
	if strings.TrimSpace(mov.Banco) == "" {
		return nil, invalid("banco", "must not be empty")
	}

	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		fin, err := models.ResumenFinanzas(op)
		if err != nil {
			return "", fmt.Errorf("cannot compute saldo: %w", err)
		}
		if mov.Monto > fin.Saldo {
			return "", invalid("monto", fmt.Sprintf("exceeds saldo %.2f", fin.Saldo))
		}

		var movs []models.Movimiento
		if err := models.DecodeField(op, field, &movs); err != nil {
			return "", err
		}
		mov.Estado = models.MovimientoActivo
		if mov.Moneda == "" {
			mov.Moneda = fin.Moneda
		}
		movs = append(movs, mov)
		if err := models.EncodeField(patch, field, movs); err != nil {
			return "", err
		}

		return fmt.Sprintf("%s registrado: %.2f %s · %s · %s", tipo, mov.Monto, mov.Moneda, mov.Instrumento, mov.Banco), nil
	})
}

// CancelarMovimiento marks the movimiento at index as CANCELADO
func (s *Service) CancelarMovimiento(ctx context.Context, id, tipo string, index int) (*models.Operacion, error) {
	field, ok := models.MovimientosField(tipo)
	if !ok {
		return nil, invalid("tipo", fmt.Sprintf("unknown movimiento %q", tipo))
	}

	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		var movs []models.Movimiento
		if err := models.DecodeField(op, field, &movs); err != nil {
			return "", err
		}
		if index < 0 || index >= len(movs) {
			return "", invalid("index", fmt.Sprintf("no %s at index %d", strings.ToLower(tipo), index))
		}
		movs[index].Estado = models.MovimientoCancelado
		if err := models.EncodeField(patch, field, movs); err != nil {
			return "", err
		}

		if tipo == models.MovimientoAdelanto {
			return "Adelanto cancelado", nil
		}
		return "Pago cancelado", nil
	})
}

// AgregarDocumento appends a document in estado PENDIENTE
func (s *Service) AgregarDocumento(ctx context.Context, id string, doc models.Documento) (*models.Operacion, error) {
	if strings.TrimSpace(doc.Nombre) == "" {
		return nil, invalid("nombre", "must not be empty")
	}

	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		var docs []models.Documento
		if err := models.DecodeField(op, models.FieldDocumentos, &docs); err != nil {
			return "", err
		}
		doc.Estado = models.DocumentoPendiente
		doc.Recibido = false
		if doc.Referencia != nil && strings.TrimSpace(*doc.Referencia) == "" {
			doc.Referencia = nil
		}
		docs = append(docs, doc)
		if err := models.EncodeField(patch, models.FieldDocumentos, docs); err != nil {
			return "", err
		}

		return "Documento agregado: " + doc.Nombre, nil
	})
}

// MarcarDocumentoRecibido flags the document at index as received
func (s *Service) MarcarDocumentoRecibido(ctx context.Context, id string, index int) (*models.Operacion, error) {
	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		var docs []models.Documento
		if err := models.DecodeField(op, models.FieldDocumentos, &docs); err != nil {
			return "", err
		}
		if index < 0 || index >= len(docs) {
			return "", invalid("index", fmt.Sprintf("no documento at index %d", index))
		}
		docs[index].Recibido = true
		docs[index].Estado = "RECIBIDO"
		if err := models.EncodeField(patch, models.FieldDocumentos, docs); err != nil {
			return "", err
		}

		return "Documento recibido: " + docs[index].Nombre, nil
	})
}

// EliminarDocumento removes the document at index
func (s *Service) EliminarDocumento(ctx context.Context, id string, index int) (*models.Operacion, error) {
	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		var docs []models.Documento
		if err := models.DecodeField(op, models.FieldDocumentos, &docs); err != nil {
			return "", err
		}
		if index < 0 || index >= len(docs) {
			return "", invalid("index", fmt.Sprintf("no documento at index %d", index))
		}
		nombre := docs[index].Nombre
		docs = append(docs[:index], docs[index+1:]...)
		if err := models.EncodeField(patch, models.FieldDocumentos, docs); err != nil {
			return "", err
		}

		return "Documento eliminado: " + nombre, nil
	})
}

// ActualizarLogistica overlays the non-empty fields of l on the stored logística
func (s *Service) ActualizarLogistica(ctx context.Context, id string, l models.Logistica) (*models.Operacion, error) {
	if l.Medio != "" && !models.IsValidMedio(l.Medio) {
		return nil, invalid("medio", fmt.Sprintf("unknown medio %q", l.Medio))
	}
	if l.Etapa != "" && !models.IsValidEstado(l.Etapa) && l.Etapa != models.EstadoEnChile {
		return nil, invalid("etapa", fmt.Sprintf("unknown etapa %q", l.Etapa))
	}
	for name, v := range map[string]string{
		"fechaSalida": l.FechaSalida, "eta": l.Eta, "fechaArribo": l.FechaArribo, "etaLiberacion": l.EtaLiberacion,
	} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, v); err != nil {
			return nil, invalid(name, "expected YYYY-MM-DD")
		}
	}

	return s.mutate(ctx, id, func(op *models.Operacion, patch *models.Operacion) (string, error) {
		current := models.Logistica{Medio: models.MedioMaritimo}
		if err := models.DecodeField(op, models.FieldLogistica, &current); err != nil {
			return "", err
		}
		prevEtapa := current.Etapa
		overlay(&current.Etapa, l.Etapa)
		overlay(&current.Origen, l.Origen)
		overlay(&current.Destino, l.Destino)
		overlay(&current.Medio, l.Medio)
		overlay(&current.FechaSalida, l.FechaSalida)
		overlay(&current.Eta, l.Eta)
		overlay(&current.FechaArribo, l.FechaArribo)
		overlay(&current.Deposito, l.Deposito)
		overlay(&current.EtaLiberacion, l.EtaLiberacion)
		if err := models.EncodeField(patch, models.FieldLogistica, current); err != nil {
			return "", err
		}

		if current.Etapa != prevEtapa {
			return "Logística: etapa cambiada a " + current.Etapa, nil
		}
		return "Logística actualizada", nil
	})
}

// mutate lets fn fill a partial patch for an active operación and appends
// the returned event to historial. Read, patch and write happen in one
// storage transaction.
func (s *Service) mutate(
	ctx context.Context,
	id string,
	fn func(op *models.Operacion, patch *models.Operacion) (string, error),
) (*models.Operacion, error) {
	return s.store.UpdateOperacion(ctx, id, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		if current == nil || current.Deleted {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		patch := &models.Operacion{ID: id, Data: map[string]any{}}
		evento, err := fn(current, patch)
		if err != nil {
			return nil, nil, err
		}

		var historial []models.HistorialEvento
		if err := models.DecodeField(current, models.FieldHistorial, &historial); err != nil {
			return nil, nil, err
		}
		historial = append(historial, s.evento(s.now(), evento))
		if err := models.EncodeField(patch, models.FieldHistorial, historial); err != nil {
			return nil, nil, err
		}

		stamp := s.stamp(current)
		return models.MergeOperacion(current, patch, stamp), newJob(id, models.OpUpsert, stamp), nil
	})
}

func (s *Service) evento(at time.Time, text string) models.HistorialEvento {
	return models.HistorialEvento{
		ID:     uuid.NewString(),
		Fecha:  at.UTC().Format(time.RFC3339),
		Evento: text,
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
