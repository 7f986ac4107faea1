package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"text/template"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

var detailTemplate = template.Must(template.New("operacion").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(operacionTemplate))

// movimientoView movimiento с отформатированной суммой
type movimientoView struct {
	Monto       string
	Instrumento string
	Banco       string
	Fecha       string
	Estado      string
}

// operacionView данные шаблона детального просмотра
type operacionView struct {
	Logistica     models.Logistica
	ID            string
	Proveedor     string
	Activo        string
	Estado        string
	Etapa         string
	Alerta        string
	CreatedAt     string
	Observaciones string
	Total         string
	Pagado        string
	Saldo         string
	Progreso      string
	FinanzasErr   string
	Adelantos     []movimientoView
	Pagos         []movimientoView
	Documentos    []models.Documento
	Historial     []models.HistorialEvento
	Dirty         bool
}

func (c *Cli) runAdd(ctx context.Context, in data.NuevaOperacion) error {
	if err := c.ask(&in.ID, "ID: "); err != nil {
		return err
	}
	if err := c.ask(&in.Proveedor, "Proveedor: "); err != nil {
		return err
	}
	if err := c.ask(&in.Activo, "Activo: "); err != nil {
		return err
	}

	op, err := c.data.CreateOperacion(ctx, in)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Operación creada")
	c.io.Printf("ID: %s\n", op.ID)
	c.io.Println("The change will be sent on the next sync.")
	return nil
}

func (c *Cli) runList(ctx context.Context, filtro string) error {
	ops, err := c.data.GetAll(ctx)
	if err != nil {
		return err
	}

	items := views.Listado(ops, filtro, c.now())

	if c.format == FormatJSON {
		type row struct {
			ID        string  `json:"id"`
			Proveedor string  `json:"proveedor"`
			Activo    string  `json:"activo"`
			Etapa     string  `json:"etapa"`
			Alerta    string  `json:"alerta,omitempty"`
			Moneda    string  `json:"moneda"`
			Saldo     float64 `json:"saldo"`
			Dirty     bool    `json:"dirty"`
		}
		rows := make([]row, 0, len(items))
		for _, it := range items {
			rows = append(rows, row{
				ID:        it.Op.ID,
				Proveedor: it.Op.String(models.FieldProveedor),
				Activo:    it.Op.String(models.FieldActivo),
				Etapa:     it.Etapa,
				Alerta:    it.Alerta,
				Moneda:    it.Finanzas.Moneda,
				Saldo:     it.Finanzas.Saldo,
				Dirty:     it.Op.Dirty,
			})
		}
		return c.printJSON(rows)
	}

	if len(items) == 0 {
		c.io.Println("No operaciones found.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVEEDOR\tACTIVO\tETAPA\tALERTA\tSALDO\t")
	for _, it := range items {
		id := it.Op.ID
		if it.Op.Dirty {
			id += " *"
		}
		alerta := it.Alerta
		if alerta == "" {
			alerta = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			id,
			it.Op.String(models.FieldProveedor),
			it.Op.String(models.FieldActivo),
			it.Etapa,
			alerta,
			views.FormatMonto(it.Finanzas.Saldo, it.Finanzas.Moneda))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("Total: %d (* = pending sync)\n", len(items))
	return nil
}

func (c *Cli) runGet(ctx context.Context, id string) error {
	op, err := c.active(ctx, id)
	if err != nil {
		return err
	}

	if c.format == FormatJSON {
		return c.printJSON(op)
	}

	return detailTemplate.Execute(c.io, c.detail(op))
}

func (c *Cli) runDelete(ctx context.Context, id string) error {
	if _, err := c.active(ctx, id); err != nil {
		return err
	}
	if err := c.data.Delete(ctx, id); err != nil {
		return err
	}

	c.io.Printf("✓ Operación %s eliminada\n", id)
	return nil
}

func (c *Cli) runEstado(ctx context.Context, id, estado string) error {
	op, err := c.data.CambiarEstado(ctx, id, estado)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Operación %s: estado %s\n", op.ID, op.String(models.FieldEstado))
	return nil
}

// active returns a non-deleted operación or data.ErrNotFound
func (c *Cli) active(ctx context.Context, id string) (*models.Operacion, error) {
	op, err := c.data.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if op == nil || op.Deleted {
		return nil, fmt.Errorf("%w: %s", data.ErrNotFound, id)
	}
	return op, nil
}

func (c *Cli) detail(op *models.Operacion) operacionView {
	it := views.Normalize(op, c.now())
	fin := it.Finanzas

	v := operacionView{
		ID:            op.ID,
		Proveedor:     op.String(models.FieldProveedor),
		Activo:        op.String(models.FieldActivo),
		Estado:        op.String(models.FieldEstado),
		Etapa:         it.Etapa,
		Alerta:        it.Alerta,
		Observaciones: op.String(models.FieldObservaciones),
		Total:         views.FormatMonto(fin.Total, fin.Moneda),
		Pagado:        views.FormatMonto(fin.Pagado, fin.Moneda),
		Saldo:         views.FormatMonto(fin.Saldo, fin.Moneda),
		Progreso:      views.FormatProgreso(fin.Progreso),
		Dirty:         op.Dirty,
	}
	if it.FinanzasErr != nil {
		v.FinanzasErr = it.FinanzasErr.Error()
	}
	if created, err := time.Parse(time.RFC3339, op.String(models.FieldCreatedAt)); err == nil {
		v.CreatedAt = created.In(c.now().Location()).Format("2006-01-02 15:04")
	}

	_ = models.DecodeField(op, models.FieldLogistica, &v.Logistica)
	_ = models.DecodeField(op, models.FieldDocumentos, &v.Documentos)
	_ = models.DecodeField(op, models.FieldHistorial, &v.Historial)

	var adelantos, pagos []models.Movimiento
	_ = models.DecodeField(op, models.FieldAdelantos, &adelantos)
	_ = models.DecodeField(op, models.FieldPagos, &pagos)
	v.Adelantos = movimientoViews(adelantos, fin.Moneda)
	v.Pagos = movimientoViews(pagos, fin.Moneda)

	return v
}

func movimientoViews(movs []models.Movimiento, moneda string) []movimientoView {
	out := make([]movimientoView, 0, len(movs))
	for _, m := range movs {
		cur := m.Moneda
		if cur == "" {
			cur = moneda
		}
		out = append(out, movimientoView{
			Monto:       views.FormatMonto(m.Monto, cur),
			Instrumento: m.Instrumento,
			Banco:       m.Banco,
			Fecha:       m.Fecha,
			Estado:      m.Estado,
		})
	}
	return out
}

// parseIndex converts a 1-based position given by the user
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: expected a number starting at 1", s)
	}
	return n - 1, nil
}
