package service

import "certalert/internal/entity"

type templateSource struct {
	subject string
	text    string
	html    string
}

var tierTemplates = map[entity.Tier]templateSource{
	entity.Tier60Day: {
		subject: `Reminder: {{.CertName}} expires in {{.DaysRemaining}} days`,
		text: `Hi {{.WorkerFirstName}},

This is a courtesy reminder that your {{template "cert" .}} expires on {{.ExpiryDate}} ({{.DaysRemaining}} days remaining).

Please plan your renewal with {{.CompanyName}}.
{{template "footer" .}}`,
		html: `{{define "content"}}
<p>Hi {{.WorkerFirstName}},</p>
<p>This is a courtesy reminder that your {{template "cert" .}} expires on <strong>{{.ExpiryDate}}</strong> ({{.DaysRemaining}} days remaining).</p>
<p>Please plan your renewal with {{.CompanyName}}.</p>
{{end}}`,
	},
	entity.Tier30Day: {
		subject: `Important: {{.CertName}} expires in {{.DaysRemaining}} days`,
		text: `Hi {{.WorkerFirstName}},

IMPORTANT: your {{template "cert" .}} expires on {{.ExpiryDate}} ({{.DaysRemaining}} days remaining).

Schedule your renewal now.{{template "informed" .}}
{{template "footer" .}}`,
		html: `{{define "content"}}
<p>Hi {{.WorkerFirstName}},</p>
<p><strong>Important:</strong> your {{template "cert" .}} expires on <strong>{{.ExpiryDate}}</strong> ({{.DaysRemaining}} days remaining).</p>
<p>Schedule your renewal now.{{template "informed" .}}</p>
{{end}}`,
	},
	entity.Tier7Day: {
		subject: `URGENT: {{.CertName}} expires in {{.DaysRemaining}} days`,
		text: `Hi {{.WorkerFirstName}},

URGENT: your {{template "cert" .}} expires on {{.ExpiryDate}}. Only {{.DaysRemaining}} days remain.

Renew immediately to avoid a work restriction at {{.CompanyName}}.
{{template "roles" .}}{{template "safety" .}}{{template "footer" .}}`,
		html: `{{define "content"}}
<p>Hi {{.WorkerFirstName}},</p>
<p style="color:#b45309"><strong>URGENT:</strong> your {{template "cert" .}} expires on <strong>{{.ExpiryDate}}</strong>. Only {{.DaysRemaining}} days remain.</p>
<p>Renew immediately to avoid a work restriction at {{.CompanyName}}.</p>
{{template "roles" .}}{{template "safety" .}}
{{end}}`,
	},
	entity.TierExpired: {
		subject: `EXPIRED: {{.CertName}} has expired, work restriction in effect`,
		text: `Hi {{.WorkerFirstName}},

Your {{template "cert" .}} expired on {{.ExpiryDate}}. Days remaining: {{.DaysRemaining}}.

A work restriction is now in effect at {{.CompanyName}} until the certification is renewed.
{{if .StatusChanged}}The certification status has been changed to expired.
{{end}}{{template "roles" .}}{{template "safety" .}}{{template "footer" .}}`,
		html: `{{define "content"}}
<p>Hi {{.WorkerFirstName}},</p>
<p style="color:#b91c1c"><strong>EXPIRED:</strong> your {{template "cert" .}} expired on <strong>{{.ExpiryDate}}</strong>. Days remaining: {{.DaysRemaining}}.</p>
<p>A work restriction is now in effect at {{.CompanyName}} until the certification is renewed.</p>
{{if .StatusChanged}}<p>The certification status has been changed to expired.</p>{{end}}
{{template "roles" .}}{{template "safety" .}}
{{end}}`,
	},
}

const textPartials = `
{{- define "cert"}}{{.CertName}} ({{.CertCode}}){{if .CertNumber}} certificate #{{.CertNumber}}{{end}}{{end}}
{{- define "informed"}}{{if and .Informed.Supervisor .Informed.Safety}} Your supervisor and the {{.CompanyName}} safety team have been informed.{{else if .Informed.Supervisor}} Your supervisor has been informed.{{else if .Informed.Safety}} The {{.CompanyName}} safety team has been informed.{{end}}{{end}}
{{- define "roles"}}{{if and .ListRoles .RoleLabels}}
Notified roles:
{{range .RoleLabels}}  - {{.}}
{{end}}{{end}}{{end}}
{{- define "safety"}}{{if and .ShowSafetyContact .SafetyManager.Present}}
Safety manager contact:
{{if .SafetyManager.Name}}  {{.SafetyManager.Name}}
{{end}}{{if .SafetyManager.Email}}  {{.SafetyManager.Email}}
{{end}}{{if .SafetyManager.Phone}}  {{.SafetyManager.Phone}}
{{end}}{{end}}{{end}}
{{- define "footer"}}
{{.CompanyName}} compliance{{if .CompanyPhone}} | {{.CompanyPhone}}{{end}}
{{end}}`

const htmlLayout = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif">
<h2>{{.Label}}: {{.CertName}}</h2>
{{template "content" .}}
<p style="color:#6b7280">{{.CompanyName}} compliance{{if .CompanyPhone}} | {{.CompanyPhone}}{{end}}</p>
</body></html>`

const htmlPartials = `
{{- define "cert"}}{{.CertName}} ({{.CertCode}}){{if .CertNumber}} certificate #{{.CertNumber}}{{end}}{{end}}
{{- define "informed"}}{{if and .Informed.Supervisor .Informed.Safety}} Your supervisor and the {{.CompanyName}} safety team have been informed.{{else if .Informed.Supervisor}} Your supervisor has been informed.{{else if .Informed.Safety}} The {{.CompanyName}} safety team has been informed.{{end}}{{end}}
{{- define "roles"}}{{if and .ListRoles .RoleLabels}}<p>Notified roles:</p><ul>{{range .RoleLabels}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}
{{- define "safety"}}{{if and .ShowSafetyContact .SafetyManager.Present}}<p><strong>Safety manager contact</strong><br>
{{if .SafetyManager.Name}}{{.SafetyManager.Name}}<br>{{end}}
{{if .SafetyManager.Email}}<a href="mailto:{{.SafetyManager.Email}}">{{.SafetyManager.Email}}</a><br>{{end}}
{{if .SafetyManager.Phone}}{{.SafetyManager.Phone}}{{end}}</p>{{end}}{{end}}`
