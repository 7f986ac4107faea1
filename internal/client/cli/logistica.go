package cli

import (
	"context"
	"strings"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

func (c *Cli) runLogistica(ctx context.Context, id string, l models.Logistica) error {
	l.Medio = strings.ToUpper(l.Medio)
	l.Etapa = strings.ToUpper(l.Etapa)

	op, err := c.data.ActualizarLogistica(ctx, id, l)
	if err != nil {
		return err
	}

	var saved models.Logistica
	_ = models.DecodeField(op, models.FieldLogistica, &saved)

	c.io.Printf("✓ Logística de %s actualizada\n", op.ID)
	c.io.Printf("%s → %s (%s)\n", dash(saved.Origen), dash(saved.Destino), saved.Medio)
	if saved.Eta != "" {
		c.io.Printf("ETA: %s\n", saved.Eta)
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
