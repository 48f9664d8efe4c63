package notify

const templates = `
{{define "greeting"}}<p>Hola {{ .Name | default .Email }},</p>{{end}}

{{define "footer"}}<p><a href="{{ .LoginURL }}">Iniciar sesión</a></p>
<p style="color:#888">NutriAdmin &middot; {{ now | date "2006" }}</p>{{end}}

{{define "welcome"}}{{template "greeting" .}}
<p>La agencia <strong>{{ .Agency | trim }}</strong> fue registrada y su cuenta de administrador está lista.</p>
<p>Usuario: {{ .Email | lower }}<br>Contraseña temporal: <code>{{ .Password }}</code></p>
<p>Deberá cambiar la contraseña temporal en su primer inicio de sesión.</p>
{{template "footer" .}}{{end}}

{{define "temporary_password"}}{{template "greeting" .}}
<p>Se generó una contraseña temporal para su cuenta: <code>{{ .Password }}</code></p>
<p>Deberá cambiarla en su próximo inicio de sesión.</p>
{{template "footer" .}}{{end}}

{{define "agency_assignment"}}{{template "greeting" .}}
<p>Su cuenta fue asignada a la agencia <strong>{{ .Agency | trim }}</strong>{{ if .IsMonitor }} como monitor{{ end }}.</p>
{{template "footer" .}}{{end}}

{{define "password_reset"}}{{template "greeting" .}}
<p>Recibimos una solicitud para restablecer su contraseña. Use esta contraseña temporal: <code>{{ .Password }}</code></p>
<p>Si no solicitó el cambio, comuníquese con el administrador.</p>
{{template "footer" .}}{{end}}
`
