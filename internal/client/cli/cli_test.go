package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/auth"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/config"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/iocli"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage/boltdb"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/views"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// authStub подменяет auth.Service в тестах команд
type authStub struct {
	current   *storage.AuthData
	logoutErr error
	username  string
	password  string
}

func (a *authStub) Register(ctx context.Context, username, password string) (*auth.RegisterResult, error) {
	a.username, a.password = username, password
	return &auth.RegisterResult{UserID: "user-1", Username: username}, nil
}

func (a *authStub) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	a.username, a.password = username, password
	a.current = &storage.AuthData{Username: username, UserID: "user-1", AccessToken: "access", ExpiresAt: 1_900_000_000}
	return a.current, nil
}

func (a *authStub) Logout(ctx context.Context) error {
	if a.logoutErr != nil {
		return a.logoutErr
	}
	a.current = nil
	return nil
}

func (a *authStub) Current(ctx context.Context) (*storage.AuthData, error) {
	if a.current == nil {
		return nil, auth.ErrNotLoggedIn
	}
	return a.current, nil
}

type testCli struct {
	cli   *Cli
	out   *bytes.Buffer
	store *boltdb.Storage
	svc   *data.Service
	auth  *authStub
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCli(t *testing.T, input string) *testCli {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := func() time.Time { return fixedNow }
	out := &bytes.Buffer{}
	stub := &authStub{}
	svc := data.NewService(store, data.WithClock(now))

	c := New(Deps{
		IO:     iocli.New(strings.NewReader(input), out),
		Auth:   stub,
		Data:   svc,
		Status: store,
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	c.now = now

	return &testCli{cli: c, out: out, store: store, svc: svc, auth: stub}
}

func (tc *testCli) create(t *testing.T, id string, total float64) {
	t.Helper()
	_, err := tc.svc.CreateOperacion(context.Background(), data.NuevaOperacion{
		ID: id, Proveedor: "Acme", Activo: "Excavadora", TotalOperacion: total,
	})
	require.NoError(t, err)
}

func TestCli_AddPromptsMissingFields(t *testing.T) {
	tc := newTestCli(t, "op_1\nAcme\nGrúa\n")
	ctx := context.Background()

	err := tc.cli.runAdd(ctx, data.NuevaOperacion{TotalOperacion: 5000})
	require.NoError(t, err)

	op, err := tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, "Acme", op.String(models.FieldProveedor))
	assert.Equal(t, "Grúa", op.String(models.FieldActivo))
	assert.Equal(t, models.EstadoCreada, op.String(models.FieldEstado))
	assert.True(t, op.Dirty)
	assert.Contains(t, tc.out.String(), "✓ Operación creada")
}

func TestCli_AddRejectsInvalidID(t *testing.T) {
	tc := newTestCli(t, "")

	err := tc.cli.runAdd(context.Background(), data.NuevaOperacion{ID: "bad id", Proveedor: "Acme", Activo: "Grúa"})
	require.ErrorIs(t, err, data.ErrValidation)

	ops, err := tc.svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestCli_ListText(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)

	require.NoError(t, tc.cli.runList(context.Background(), ""))

	out := tc.out.String()
	assert.Contains(t, out, "op_1 *")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "CREADA")
	assert.Contains(t, out, "Total: 1")
}

func TestCli_ListEmpty(t *testing.T) {
	tc := newTestCli(t, "")

	require.NoError(t, tc.cli.runList(context.Background(), ""))
	assert.Contains(t, tc.out.String(), "No operaciones found.")
}

func TestCli_ListJSON(t *testing.T) {
	tc := newTestCli(t, "")
	tc.cli.format = FormatJSON
	tc.create(t, "op_1", 1000)
	tc.create(t, "op_2", 200)
	require.NoError(t, tc.svc.Delete(context.Background(), "op_2"))

	require.NoError(t, tc.cli.runList(context.Background(), ""))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "op_1", rows[0]["id"])
	assert.Equal(t, "USD", rows[0]["moneda"])
	assert.InDelta(t, 1000.0, rows[0]["saldo"], 0.001)
	assert.Equal(t, true, rows[0]["dirty"])
}

func TestCli_GetDetail(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	require.NoError(t, tc.cli.runPago(ctx, "op_1", "adelanto", models.Movimiento{Monto: 250, Banco: "BCI", Instrumento: "Transferencia"}))
	tc.out.Reset()

	require.NoError(t, tc.cli.runGet(ctx, "op_1"))

	out := tc.out.String()
	assert.Contains(t, out, "op_1")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "BCI")
	assert.Contains(t, out, "25%")
}

func TestCli_GetJSON(t *testing.T) {
	tc := newTestCli(t, "")
	tc.cli.format = FormatJSON
	tc.create(t, "op_1", 1000)

	require.NoError(t, tc.cli.runGet(context.Background(), "op_1"))

	var got models.Operacion
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &got))
	assert.Equal(t, "op_1", got.ID)
	assert.Equal(t, "Acme", got.String(models.FieldProveedor))
}

func TestCli_GetMissing(t *testing.T) {
	tc := newTestCli(t, "")

	err := tc.cli.runGet(context.Background(), "op_404")
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestCli_Delete(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	require.NoError(t, tc.cli.runDelete(ctx, "op_1"))

	op, err := tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.True(t, op.Deleted)

	err = tc.cli.runDelete(ctx, "op_1")
	require.ErrorIs(t, err, data.ErrNotFound)
}

func TestCli_Estado(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	require.NoError(t, tc.cli.runEstado(ctx, "op_1", models.EstadoEnTransito))
	assert.Contains(t, tc.out.String(), "estado EN_TRANSITO")

	err := tc.cli.runEstado(ctx, "op_1", "VOLANDO")
	require.ErrorIs(t, err, data.ErrValidation)
}

func TestCli_PagoAndCancel(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	require.NoError(t, tc.cli.runPago(ctx, "op_1", "pago", models.Movimiento{Monto: 400, Banco: "BCI"}))

	op, err := tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	var pagos []models.Movimiento
	require.NoError(t, models.DecodeField(op, models.FieldPagos, &pagos))
	require.Len(t, pagos, 1)
	assert.Equal(t, "2025-03-10", pagos[0].Fecha)
	assert.Equal(t, models.MovimientoActivo, pagos[0].Estado)

	require.NoError(t, tc.cli.runCancelarPago(ctx, "op_1", "pago", "1"))

	op, err = tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	require.NoError(t, models.DecodeField(op, models.FieldPagos, &pagos))
	assert.Equal(t, models.MovimientoCancelado, pagos[0].Estado)
	fin, err := models.ResumenFinanzas(op)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, fin.Saldo, 0.001)

	err = tc.cli.runCancelarPago(ctx, "op_1", "pago", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid position")
}

func TestCli_PagoExceedingSaldo(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 100)

	err := tc.cli.runPago(context.Background(), "op_1", "PAGO", models.Movimiento{Monto: 150, Banco: "BCI"})
	require.ErrorIs(t, err, data.ErrValidation)
}

func TestCli_Documentos(t *testing.T) {
	tc := newTestCli(t, "Factura comercial\n")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	require.NoError(t, tc.cli.runDocAdd(ctx, "op_1", models.Documento{Tipo: "FACTURA"}))
	require.NoError(t, tc.cli.runDocAdd(ctx, "op_1", models.Documento{Nombre: "BL", Tipo: "BL"}))
	require.NoError(t, tc.cli.runDocRecibido(ctx, "op_1", "1"))
	require.NoError(t, tc.cli.runDocEliminar(ctx, "op_1", "2"))

	op, err := tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	var docs []models.Documento
	require.NoError(t, models.DecodeField(op, models.FieldDocumentos, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Factura comercial", docs[0].Nombre)
	assert.True(t, docs[0].Recibido)

	err = tc.cli.runDocRecibido(ctx, "op_1", "5")
	require.ErrorIs(t, err, data.ErrValidation)
}

func TestCli_Logistica(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	ctx := context.Background()

	err := tc.cli.runLogistica(ctx, "op_1", models.Logistica{
		Etapa:   "en_transito",
		Origen:  "Shanghai",
		Destino: "Valparaíso",
		Medio:   "marítimo",
		Eta:     "2025-04-01",
	})
	require.NoError(t, err)
	assert.Contains(t, tc.out.String(), "Shanghai → Valparaíso (MARÍTIMO)")

	op, err := tc.svc.GetByID(ctx, "op_1")
	require.NoError(t, err)
	var l models.Logistica
	require.NoError(t, models.DecodeField(op, models.FieldLogistica, &l))
	assert.Equal(t, models.EstadoEnTransito, l.Etapa)
	assert.Equal(t, "2025-04-01", l.Eta)

	err = tc.cli.runLogistica(ctx, "op_1", models.Logistica{Eta: "01/04/2025"})
	require.ErrorIs(t, err, data.ErrValidation)
}

func TestCli_KPIsJSON(t *testing.T) {
	tc := newTestCli(t, "")
	tc.cli.format = FormatJSON
	tc.create(t, "op_1", 1000)
	tc.create(t, "op_2", 1000)
	ctx := context.Background()
	require.NoError(t, tc.cli.runLogistica(ctx, "op_2", models.Logistica{Etapa: "EN_TRANSITO", Eta: "2025-03-12"}))
	tc.out.Reset()

	require.NoError(t, tc.cli.runKPIs(ctx))

	var got struct {
		Operaciones map[string]int `json:"operaciones"`
		Logistica   map[string]int `json:"logistica"`
	}
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &got))
	assert.Equal(t, 2, got.Operaciones["activas"])
	assert.Equal(t, 2, got.Operaciones["pagos_pendientes"])
	assert.Equal(t, 1, got.Logistica["en_transito"])
	assert.Equal(t, 1, got.Logistica["proximos"])
	assert.Equal(t, 0, got.Logistica["con_alertas"])
}

func finanzasFixture(t *testing.T, tc *testCli) {
	t.Helper()
	ctx := context.Background()

	tc.create(t, "op_1", 1000)
	tc.create(t, "op_2", 500)
	require.NoError(t, tc.cli.runPago(ctx, "op_1", "pago", models.Movimiento{Monto: 400, Banco: "BBVA"}))
	require.NoError(t, tc.cli.runPago(ctx, "op_2", "adelanto", models.Movimiento{Monto: 500, Banco: "Galicia"}))
	tc.out.Reset()
}

func TestCli_FinanzasText(t *testing.T) {
	tc := newTestCli(t, "")
	finanzasFixture(t, tc)

	require.NoError(t, tc.cli.runFinanzas(context.Background(), views.FiltroFinanzas{}, ""))

	out := tc.out.String()
	assert.Contains(t, out, "Saldo a pagar:      USD 600,00")
	assert.Contains(t, out, "Con saldo:          1")
	assert.Contains(t, out, "Galicia")
	assert.Contains(t, out, "BBVA")
	assert.Less(t, strings.Index(out, "op_1 "), strings.Index(out, "op_2 "))
	assert.Contains(t, out, "Operaciones filtradas: 2 de 2")
}

func TestCli_FinanzasJSON(t *testing.T) {
	tc := newTestCli(t, "")
	tc.cli.format = FormatJSON
	finanzasFixture(t, tc)

	require.NoError(t, tc.cli.runFinanzas(context.Background(), views.FiltroFinanzas{Banco: "BBVA"}, ""))

	var got struct {
		Resumen     views.Resumen      `json:"resumen"`
		Bancos      []views.BancoStats `json:"bancos"`
		Operaciones []struct {
			ID     string   `json:"id"`
			Saldo  float64  `json:"saldo"`
			Bancos []string `json:"bancos"`
		} `json:"operaciones"`
	}
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &got))
	assert.Equal(t, 1500.0, got.Resumen.Total)
	assert.Equal(t, 500.0, got.Resumen.Adelantos)
	assert.Equal(t, 1, got.Resumen.ConPendiente)
	require.Len(t, got.Bancos, 2)
	assert.Equal(t, "Galicia", got.Bancos[0].Banco)
	require.Len(t, got.Operaciones, 1)
	assert.Equal(t, "op_1", got.Operaciones[0].ID)
	assert.Equal(t, 600.0, got.Operaciones[0].Saldo)
	assert.Equal(t, []string{"BBVA"}, got.Operaciones[0].Bancos)
}

func TestCli_FinanzasCSV(t *testing.T) {
	tc := newTestCli(t, "")
	finanzasFixture(t, tc)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finanzas.csv")

	require.NoError(t, tc.cli.runFinanzas(ctx, views.FiltroFinanzas{Saldo: views.SaldoPendiente}, path))
	assert.Contains(t, tc.out.String(), "1 operaciones exportadas")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,proveedor,moneda,total,adelantosActivos,pagadoActivo,saldo,progreso\n"+
		"op_1,Acme,USD,1000,0,400,600,40\n", string(raw))

	tc.out.Reset()
	require.NoError(t, tc.cli.runFinanzas(ctx, views.FiltroFinanzas{Saldo: views.SaldoOK}, "-"))
	assert.Equal(t, "id,proveedor,moneda,total,adelantosActivos,pagadoActivo,saldo,progreso\n"+
		"op_2,Acme,USD,500,500,500,0,100\n", tc.out.String())
}

func TestCli_FinanzasInvalidOrden(t *testing.T) {
	tc := newTestCli(t, "")

	err := tc.cli.runFinanzas(context.Background(), views.FiltroFinanzas{Orden: "FECHA"}, "")
	require.ErrorIs(t, err, views.ErrFiltro)
}

func TestCli_DocumentosListado(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)
	tc.create(t, "op_2", 1000)
	ctx := context.Background()
	require.NoError(t, tc.cli.runDocAdd(ctx, "op_1", models.Documento{Nombre: "Factura comercial", Tipo: "FACTURA"}))
	require.NoError(t, tc.cli.runDocAdd(ctx, "op_2", models.Documento{Nombre: "Bill of Lading", Tipo: "BL"}))
	require.NoError(t, tc.cli.runDocAdd(ctx, "op_2", models.Documento{Nombre: "Packing"}))
	tc.out.Reset()

	require.NoError(t, tc.cli.runDocumentos(ctx, views.FiltroTodos))
	out := tc.out.String()
	assert.Contains(t, out, "Total: 3  Facturas: 1  B/L: 1  Packing: 0")
	assert.Contains(t, out, "Bill of Lading")
	assert.Contains(t, out, "OTRO")

	tc.out.Reset()
	tc.cli.format = FormatJSON
	require.NoError(t, tc.cli.runDocumentos(ctx, "bl"))

	var got struct {
		KPIs       views.DocumentosKPIs `json:"kpis"`
		Documentos []struct {
			OperacionID string `json:"operacion_id"`
			Index       int    `json:"index"`
			Nombre      string `json:"nombre"`
		} `json:"documentos"`
	}
	require.NoError(t, json.Unmarshal(tc.out.Bytes(), &got))
	assert.Equal(t, 3, got.KPIs.Total)
	require.Len(t, got.Documentos, 1)
	assert.Equal(t, "op_2", got.Documentos[0].OperacionID)
	assert.Equal(t, 0, got.Documentos[0].Index)
	assert.Equal(t, "Bill of Lading", got.Documentos[0].Nombre)

	tc.out.Reset()
	require.NoError(t, tc.cli.runDocumentos(ctx, views.TipoPackingList))
	assert.Contains(t, tc.out.String(), `"documentos": []`)
}

func TestCli_Register(t *testing.T) {
	t.Setenv("IMPO_PASSWORD", "")
	tc := newTestCli(t, "alice\nsecret\nsecret\n")

	require.NoError(t, tc.cli.runRegister(context.Background(), credentials{}))
	assert.Equal(t, "alice", tc.auth.username)
	assert.Equal(t, "secret", tc.auth.password)
	assert.Contains(t, tc.out.String(), "User ID:  user-1")
}

func TestCli_RegisterPasswordMismatch(t *testing.T) {
	t.Setenv("IMPO_PASSWORD", "")
	tc := newTestCli(t, "alice\nsecret\nother\n")

	err := tc.cli.runRegister(context.Background(), credentials{})
	require.EqualError(t, err, "passwords do not match")
	assert.Empty(t, tc.auth.username)
}

func TestCli_LoginFromFlags(t *testing.T) {
	t.Setenv("IMPO_PASSWORD", "")
	tc := newTestCli(t, "")

	require.NoError(t, tc.cli.runLogin(context.Background(), credentials{Username: "bob", Password: "pw"}))
	assert.Equal(t, "bob", tc.auth.username)
	assert.Equal(t, "pw", tc.auth.password)
	assert.Contains(t, tc.out.String(), "✓ Login successful!")
}

func TestCli_LogoutNotLoggedIn(t *testing.T) {
	tc := newTestCli(t, "")
	tc.auth.logoutErr = auth.ErrNotLoggedIn

	require.NoError(t, tc.cli.runLogout(context.Background()))
	assert.Contains(t, tc.out.String(), "Not logged in.")
}

func TestCli_LogoutWarnsAboutPending(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)

	require.NoError(t, tc.cli.runLogout(context.Background()))
	assert.Contains(t, tc.out.String(), "1 change(s) were not synchronized yet")
	assert.Contains(t, tc.out.String(), "✓ Logged out")
}

func TestCli_Status(t *testing.T) {
	tc := newTestCli(t, "")
	tc.create(t, "op_1", 1000)

	require.NoError(t, tc.cli.runStatus(context.Background()))

	out := tc.out.String()
	assert.Contains(t, out, "Session: not authenticated")
	assert.Contains(t, out, "Pending sync: 1 change(s)")
	assert.Contains(t, out, "Last sync: never")
}

func TestCli_SyncRequiresLogin(t *testing.T) {
	tc := newTestCli(t, "")

	err := tc.cli.runSync(context.Background())
	require.ErrorIs(t, err, auth.ErrNotLoggedIn)
}

func TestReadPassword_Priority(t *testing.T) {
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "password.txt")
	require.NoError(t, os.WriteFile(passwordFile, []byte("  from-file\n"), 0o600))
	emptyFile := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(emptyFile, []byte("\n"), 0o600))

	tests := []struct {
		name    string
		env     string
		creds   credentials
		input   string
		want    string
		wantErr bool
	}{
		{name: "env wins", env: "from-env", creds: credentials{Password: "flag", PasswordFile: passwordFile}, want: "from-env"},
		{name: "file before flag", creds: credentials{Password: "flag", PasswordFile: passwordFile}, want: "from-file"},
		{name: "flag", creds: credentials{Password: "flag"}, want: "flag"},
		{name: "prompt", input: "typed\n", want: "typed"},
		{name: "empty prompt", input: "\n", wantErr: true},
		{name: "empty file", creds: credentials{PasswordFile: emptyFile}, wantErr: true},
		{name: "missing file", creds: credentials{PasswordFile: filepath.Join(dir, "nope")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMPO_PASSWORD", tt.env)
			tc := newTestCli(t, tt.input)

			got, err := tc.cli.readPassword(tt.creds, "Password: ")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIndex(t *testing.T) {
	i, err := parseIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := parseIndex(bad)
		assert.Error(t, err, bad)
	}
}
