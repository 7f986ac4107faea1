package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

func (c *Cli) runPago(ctx context.Context, id, tipo string, mov models.Movimiento) error {
	tipo = strings.ToUpper(tipo)
	if mov.Fecha == "" {
		mov.Fecha = c.now().Format("2006-01-02")
	}

	op, err := c.data.RegistrarMovimiento(ctx, id, tipo, mov)
	if err != nil {
		return err
	}

	fin := c.finanzas(op)
	c.io.Printf("✓ %s registrado en %s\n", tipo, op.ID)
	c.io.Printf("Pagado: %s (%s)\n", views.FormatMonto(fin.Pagado, fin.Moneda), views.FormatProgreso(fin.Progreso))
	c.io.Printf("Saldo:  %s\n", views.FormatMonto(fin.Saldo, fin.Moneda))
	return nil
}

func (c *Cli) runCancelarPago(ctx context.Context, id, tipo, position string) error {
	index, err := parseIndex(position)
	if err != nil {
		return err
	}

	op, err := c.data.CancelarMovimiento(ctx, id, strings.ToUpper(tipo), index)
	if err != nil {
		return err
	}

	fin := c.finanzas(op)
	c.io.Printf("✓ Movimiento %s cancelado en %s\n", position, op.ID)
	c.io.Printf("Saldo: %s\n", views.FormatMonto(fin.Saldo, fin.Moneda))
	return nil
}

// finanzas returns the summary of op and warns when movimientos are unreadable
func (c *Cli) finanzas(op *models.Operacion) models.Finanzas {
	fin, err := models.ResumenFinanzas(op)
	if err != nil {
		c.logger.Warn("Movimientos could not be decoded", "operacion_id", op.ID, "error", err)
		c.io.Printf("⚠️  Finanzas incompletas: %v\n", err)
	}
	return fin
}

// bancosVisibles столько банков показывает текстовый вывод
const bancosVisibles = 8

// runFinanzas shows the global financial state. With csvPath the filtered
// rows are exported instead; "-" writes to stdout.
func (c *Cli) runFinanzas(ctx context.Context, filtro views.FiltroFinanzas, csvPath string) error {
	ops, err := c.data.GetAll(ctx)
	if err != nil {
		return err
	}

	filas := views.FilasFinanzas(ops)
	for _, f := range filas {
		if f.Err != nil {
			c.logger.Warn("Movimientos could not be decoded", "operacion_id", f.ID, "error", f.Err)
		}
	}
	filtradas, err := views.FiltrarFinanzas(filas, filtro)
	if err != nil {
		return err
	}

	if csvPath != "" {
		return c.exportFinanzas(filtradas, csvPath)
	}

	resumen := views.ResumenGlobal(filas)
	bancos := views.RankingBancos(ops)

	if c.format == FormatJSON {
		return c.printJSON(struct {
			Resumen     views.Resumen        `json:"resumen"`
			Bancos      []views.BancoStats   `json:"bancos"`
			Operaciones []views.FilaFinanzas `json:"operaciones"`
		}{resumen, bancos, filtradas})
	}

	c.io.Println("=== Finanzas ===")
	c.io.Printf("Total operaciones:  %s\n", views.FormatMonto(resumen.Total, ""))
	c.io.Printf("Adelantos pagados:  %s\n", views.FormatMonto(resumen.Adelantos, ""))
	c.io.Printf("Pagado:             %s\n", views.FormatMonto(resumen.Pagado, ""))
	c.io.Printf("Saldo a pagar:      %s\n", views.FormatMonto(resumen.Pendiente, ""))
	c.io.Printf("Con saldo:          %d\n", resumen.ConPendiente)
	for _, m := range resumen.PorMoneda {
		c.io.Printf("  %s: total %s, pendiente %s\n", m.Moneda,
			views.FormatMonto(m.Total, m.Moneda), views.FormatMonto(m.Pendiente, m.Moneda))
	}

	c.io.Println()
	c.io.Println("=== Bancos (movimientos ACTIVO) ===")
	if len(bancos) == 0 {
		c.io.Println("No hay movimientos ACTIVO.")
	}
	for _, b := range bancos[:min(len(bancos), bancosVisibles)] {
		c.io.Printf("%-20s %3d movs  %s  (%d ops)\n", b.Banco, b.Movimientos, views.FormatMonto(b.Total, ""), b.Operaciones)
	}

	c.io.Println()
	if len(filtradas) == 0 {
		c.io.Println("No operaciones match the filters.")
		return nil
	}
	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROVEEDOR\tTOTAL\tPAGADO\tSALDO\tPROGRESO\t")
	for _, f := range filtradas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			f.ID,
			f.Proveedor,
			views.FormatMonto(f.Total, f.Moneda),
			views.FormatMonto(f.Pagado, f.Moneda),
			views.FormatMonto(f.Saldo, f.Moneda),
			views.FormatProgreso(f.Progreso))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("Operaciones filtradas: %d de %d\n", len(filtradas), len(filas))
	return nil
}

func (c *Cli) exportFinanzas(filas []views.FilaFinanzas, path string) (err error) {
	var w io.Writer = c.io
	if path != "-" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", path, createErr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
		}()
		w = f
	}

	if err := views.ExportCSV(w, filas); err != nil {
		return err
	}
	if path != "-" {
		c.io.Printf("✓ %d operaciones exportadas a %s\n", len(filas), path)
	}
	return nil
}
