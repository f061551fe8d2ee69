package notifications

// defaultTemplate names the template used when none is configured.
const defaultTemplate = "default"

var commonTemplates = map[string]string{
	defaultTemplate: `
{{- with .Report -}}
  {{- if (or .Updated .Failed .Stale) -}}
    {{- if .DryRun}}[dry run] {{end -}}
    {{len .Scanned}} Scanned, {{len .Updated}} Updated, {{len .Stale}} Stale, {{len .Failed}} Failed
    {{- range .Updated}}
- {{.Name}}: {{.CurrentTag}} updated to {{.TargetTag}}
    {{- end -}}
    {{- range .Stale}}
- {{.Name}}: {{.CurrentTag}} can be updated to {{.TargetTag}}
    {{- end -}}
    {{- range .Failed}}
- {{.Name}}:{{.CurrentTag}}: {{.State | ToLower}}: {{.Error}}
    {{- end -}}
    {{- range .Containers}}
      {{- if ne .State "Updated"}}
- container {{.Name}} ({{.ImageName}}): {{.State | ToLower}}{{with .Error}}: {{.}}{{end}}
      {{- end -}}
    {{- end -}}
  {{- end -}}
{{- end -}}`,

	`summary.v1`: `
{{- with .Report -}}
  {{- range .Scanned}}
{{.Name}}:{{.CurrentTag}}: {{.State}}{{with .Error}} Error: {{.}}{{end}}
  {{- else -}}
    no images matched filter
  {{- end -}}
{{- end -}}`,

	`json.v1`: `{{ . | ToJSON }}`,
}
