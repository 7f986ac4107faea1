package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

func noop(*cobra.Command, []string) error { return nil }

func newVersionCommand(version, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:                "version",
		Short:              "Show version information",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  noop,
		PersistentPostRunE: noop,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "impo client\nVersion:    %s\nBuild Date: %s\n", version, buildDate)
		},
	}
}

func addCredentialFlags(cmd *cobra.Command, creds *credentials) {
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password (not recommended, use IMPO_PASSWORD or --password-file)")
	cmd.Flags().StringVar(&creds.PasswordFile, "password-file", "", "path to file containing the password")
}

func newRegisterCommand(a *app) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register new user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runRegister(cmd.Context(), *creds)
		},
	}
	addCredentialFlags(cmd, creds)
	return cmd
}

func newLoginCommand(a *app) *cobra.Command {
	creds := &credentials{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to server and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogin(cmd.Context(), *creds)
		},
	}
	addCredentialFlags(cmd, creds)
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogout(cmd.Context())
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, pending changes and last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runStatus(cmd.Context())
		},
	}
}

func newAddCommand(a *app) *cobra.Command {
	in := &data.NuevaOperacion{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an operación",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runAdd(cmd.Context(), *in)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.ID, "id", "", "operación id, e.g. op_1 (prompted when empty)")
	f.StringVar(&in.Proveedor, "proveedor", "", "supplier (prompted when empty)")
	f.StringVar(&in.Activo, "activo", "", "imported asset (prompted when empty)")
	f.StringVar(&in.Moneda, "moneda", "USD", "currency: USD or EUR")
	f.Float64Var(&in.TotalOperacion, "total", 0, "total amount")
	f.StringVar(&in.Observaciones, "obs", "", "notes")
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var filtro string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operaciones ordered by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runList(cmd.Context(), filtro)
		},
	}
	cmd.Flags().StringVarP(&filtro, "filter", "f", views.FiltroTodas, "TODAS, ALERTAS or an etapa (e.g. EN_TRANSITO)")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show operación details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runGet(cmd.Context(), args[0])
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an operación",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDelete(cmd.Context(), args[0])
		},
	}
}

func newEstadoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "estado <id> <estado>",
		Short:     "Change the estado of an operación",
		Args:      cobra.ExactArgs(2),
		ValidArgs: models.Estados,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runEstado(cmd.Context(), args[0], args[1])
		},
	}
}

func newPagoCommand(a *app) *cobra.Command {
	var (
		tipo string
		mov  models.Movimiento
	)
	cmd := &cobra.Command{
		Use:   "pago <id>",
		Short: "Register an adelanto or pago",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runPago(cmd.Context(), args[0], tipo, mov)
		},
	}
	f := cmd.Flags()
	f.StringVar(&tipo, "tipo", models.MovimientoPago, "ADELANTO or PAGO")
	f.Float64Var(&mov.Monto, "monto", 0, "amount")
	f.StringVar(&mov.Banco, "banco", "", "bank")
	f.StringVar(&mov.Instrumento, "instrumento", "Transferencia", "payment instrument")
	f.StringVar(&mov.Fecha, "fecha", "", "date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("monto")
	_ = cmd.MarkFlagRequired("banco")
	return cmd
}

func newCancelarPagoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelar-pago <id> <ADELANTO|PAGO> <n>",
		Short: "Cancel the n-th adelanto or pago",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runCancelarPago(cmd.Context(), args[0], args[1], args[2])
		},
	}
}

func newDocCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "doc", Short: "Manage documentos of an operación"}

	var (
		doc        models.Documento
		referencia string
	)
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a pending documento",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if referencia != "" {
				doc.Referencia = &referencia
			}
			return a.cli.runDocAdd(cmd.Context(), args[0], doc)
		},
	}
	add.Flags().StringVar(&doc.Nombre, "nombre", "", "document name (prompted when empty)")
	add.Flags().StringVar(&doc.Tipo, "tipo", "", "document type, e.g. BL, FACTURA")
	add.Flags().StringVar(&referencia, "ref", "", "external reference")

	cmd.AddCommand(add)
	cmd.AddCommand(&cobra.Command{
		Use:   "recibido <id> <n>",
		Short: "Mark the n-th documento as received",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDocRecibido(cmd.Context(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "eliminar <id> <n>",
		Short: "Remove the n-th documento",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDocEliminar(cmd.Context(), args[0], args[1])
		},
	})
	return cmd
}

func newLogisticaCommand(a *app) *cobra.Command {
	var l models.Logistica
	cmd := &cobra.Command{
		Use:   "logistica <id>",
		Short: "Update logística (only given fields change)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runLogistica(cmd.Context(), args[0], l)
		},
	}
	f := cmd.Flags()
	f.StringVar(&l.Etapa, "etapa", "", "etapa, e.g. EN_TRANSITO")
	f.StringVar(&l.Origen, "origen", "", "origin")
	f.StringVar(&l.Destino, "destino", "", "destination")
	f.StringVar(&l.Medio, "medio", "", "MARÍTIMO, TERRESTRE or AÉREO")
	f.StringVar(&l.FechaSalida, "salida", "", "departure date YYYY-MM-DD")
	f.StringVar(&l.Eta, "eta", "", "estimated arrival YYYY-MM-DD")
	f.StringVar(&l.FechaArribo, "arribo", "", "arrival date YYYY-MM-DD")
	f.StringVar(&l.Deposito, "deposito", "", "bonded warehouse")
	f.StringVar(&l.EtaLiberacion, "eta-liberacion", "", "estimated release YYYY-MM-DD")
	return cmd
}

func newKPIsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kpis",
		Short: "Show dashboard indicators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runKPIs(cmd.Context())
		},
	}
}

func newFinanzasCommand(a *app) *cobra.Command {
	var (
		filtro  views.FiltroFinanzas
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "finanzas",
		Short: "Show the financial state of all operaciones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runFinanzas(cmd.Context(), filtro, csvPath)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filtro.Query, "query", "q", "", "search by id or proveedor")
	f.StringVar(&filtro.Saldo, "saldo", views.SaldoTodas, "TODAS, PENDIENTE or OK")
	f.StringVar(&filtro.Moneda, "moneda", views.FiltroTodas, "currency or TODAS")
	f.StringVar(&filtro.Banco, "banco", views.FiltroTodos, "bank with active movimientos or TODOS")
	f.StringVar(&filtro.Orden, "orden", views.OrdenSaldoDesc, "SALDO_DESC, TOTAL_DESC, PROVEEDOR_ASC or PROGRESO_ASC")
	f.StringVar(&csvPath, "csv", "", "export the filtered rows as CSV to this file (- for stdout)")
	return cmd
}

func newDocumentosCommand(a *app) *cobra.Command {
	var tipo string
	cmd := &cobra.Command{
		Use:   "documentos",
		Short: "List documentos of all operaciones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDocumentos(cmd.Context(), tipo)
		},
	}
	cmd.Flags().StringVarP(&tipo, "tipo", "t", views.FiltroTodos, "FACTURA, BL, PACKING_LIST, OTRO or TODOS")
	return cmd
}

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization cycle now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runSync(cmd.Context())
		},
	}
}

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep synchronizing in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.runDaemon(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&a.opts.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address, e.g. :9092")
	return cmd
}
