package cli

import (
	"context"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
)

func (c *Cli) runKPIs(ctx context.Context) error {
	ops, err := c.data.GetAll(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	kpis := views.CalcularKPIs(ops)
	logistica := views.CalcularLogisticaKPIs(views.Listado(ops, views.FiltroTodas, now), now)

	if c.format == FormatJSON {
		return c.printJSON(struct {
			Operaciones views.KPIs          `json:"operaciones"`
			Logistica   views.LogisticaKPIs `json:"logistica"`
		}{kpis, logistica})
	}

	c.io.Println("=== Operaciones ===")
	c.io.Printf("Activas:          %d\n", kpis.Activas)
	c.io.Printf("En tránsito:      %d\n", kpis.EnTransito)
	c.io.Printf("Docs pendientes:  %d\n", kpis.DocsPendientes)
	c.io.Printf("Pagos pendientes: %d\n", kpis.PagosPendientes)
	c.io.Println()
	c.io.Println("=== Logística ===")
	c.io.Printf("En tránsito:      %d\n", logistica.EnTransito)
	c.io.Printf("Con alertas:      %d\n", logistica.ConAlertas)
	c.io.Printf("Arriban en 7 días: %d\n", logistica.Proximos)
	c.io.Printf("Bloqueadas:       %d\n", logistica.Bloqueadas)
	return nil
}
