package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

func (c *Cli) runDocAdd(ctx context.Context, id string, doc models.Documento) error {
	if err := c.ask(&doc.Nombre, "Nombre del documento: "); err != nil {
		return err
	}

	if _, err := c.data.AgregarDocumento(ctx, id, doc); err != nil {
		return err
	}

	c.io.Printf("✓ Documento %q agregado a %s\n", doc.Nombre, id)
	return nil
}

func (c *Cli) runDocRecibido(ctx context.Context, id, position string) error {
	index, err := parseIndex(position)
	if err != nil {
		return err
	}
	if _, err := c.data.MarcarDocumentoRecibido(ctx, id, index); err != nil {
		return err
	}

	c.io.Printf("✓ Documento %s marcado como recibido\n", position)
	return nil
}

func (c *Cli) runDocEliminar(ctx context.Context, id, position string) error {
	index, err := parseIndex(position)
	if err != nil {
		return err
	}
	if _, err := c.data.EliminarDocumento(ctx, id, index); err != nil {
		return err
	}

	c.io.Printf("✓ Documento %s eliminado\n", position)
	return nil
}

// runDocumentos lists the documents of all operaciones
func (c *Cli) runDocumentos(ctx context.Context, tipo string) error {
	ops, err := c.data.GetAll(ctx)
	if err != nil {
		return err
	}

	todos := views.Documentos(ops, views.FiltroTodos)
	items := views.Documentos(ops, tipo)
	kpis := views.ContarDocumentos(todos)

	if c.format == FormatJSON {
		if items == nil {
			items = []views.DocumentoItem{}
		}
		return c.printJSON(struct {
			KPIs       views.DocumentosKPIs  `json:"kpis"`
			Documentos []views.DocumentoItem `json:"documentos"`
		}{kpis, items})
	}

	c.io.Printf("Total: %d  Facturas: %d  B/L: %d  Packing: %d\n", kpis.Total,
		kpis.PorTipo[views.TipoFactura], kpis.PorTipo[views.TipoBL], kpis.PorTipo[views.TipoPackingList])
	c.io.Println()

	if len(items) == 0 {
		c.io.Println("No hay documentos para mostrar.")
		return nil
	}

	tw := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERACION\t#\tDOCUMENTO\tTIPO\tREFERENCIA\tRECIBIDO\t")
	for _, it := range items {
		ref := "-"
		if it.Referencia != nil {
			ref = *it.Referencia
		}
		recibido := "no"
		if it.Recibido {
			recibido = "sí"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t\n", it.OperacionID, it.Index+1, it.Nombre, it.Tipo, ref, recibido)
	}
	return tw.Flush()
}
