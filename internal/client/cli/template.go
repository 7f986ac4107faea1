package cli

const operacionTemplate = `
=== Operación {{.ID}} ===

Proveedor:  {{.Proveedor}}
Activo:     {{.Activo}}
Estado:     {{.Estado}}
Etapa:      {{.Etapa}}
{{- if .Alerta }}
Alerta:     ⚠ {{.Alerta}}
{{- end}}
{{- if .CreatedAt }}
Creada:     {{.CreatedAt}}
{{- end}}
{{- if .Observaciones }}
Notas:      {{.Observaciones}}
{{- end}}
{{- if .Dirty }}
Sync:       pendiente
{{- end}}

--- Finanzas ---
Total:      {{.Total}}
Pagado:     {{.Pagado}} ({{.Progreso}})
Saldo:      {{.Saldo}}
{{- if .FinanzasErr }}
Aviso:      ⚠ movimientos ilegibles ({{.FinanzasErr}})
{{- end}}
{{- range $i, $m := .Adelantos }}
  Adelanto {{inc $i}}: {{$m.Monto}} · {{$m.Instrumento}} · {{$m.Banco}} · {{$m.Fecha}} [{{$m.Estado}}]
{{- end}}
{{- range $i, $m := .Pagos }}
  Pago {{inc $i}}: {{$m.Monto}} · {{$m.Instrumento}} · {{$m.Banco}} · {{$m.Fecha}} [{{$m.Estado}}]
{{- end}}

--- Logística ---
Medio:      {{or .Logistica.Medio "-"}}
Ruta:       {{or .Logistica.Origen "-"}} → {{or .Logistica.Destino "-"}}
Salida:     {{or .Logistica.FechaSalida "-"}}
ETA:        {{or .Logistica.Eta "-"}}
Arribo:     {{or .Logistica.FechaArribo "-"}}
{{- if .Logistica.Deposito }}
Depósito:   {{.Logistica.Deposito}}
{{- end}}

--- Documentos ---
{{- range $i, $d := .Documentos }}
  {{inc $i}}. {{$d.Nombre}}{{if $d.Tipo}} ({{$d.Tipo}}){{end}} [{{if $d.Recibido}}RECIBIDO{{else}}PENDIENTE{{end}}]
{{- else }}
  (sin documentos)
{{- end}}

--- Historial ---
{{- range .Historial }}
  {{.Fecha}}  {{.Evento}}
{{- end}}
`
