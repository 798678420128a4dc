package render

const documentTemplate = `# Product Brief
{{ if .Stale }}
> **Out of date:** {{ .StaleReason }}. Regenerate before relying on this document.
{{ end }}
## Summary

{{ .Brief.Summary }}

## Problem

{{ .Brief.ProblemStatement }}

## Target Users
{{ range .Brief.TargetUsers }}
- {{ . }}
{{- end }}

## Goals
{{ range .Brief.Goals }}
- {{ . }}
{{- end }}

## Scope
{{ range .Brief.Scope }}
- {{ . }}
{{- end }}
{{ if .Brief.Decisions }}
## Decisions
{{ range .Brief.Decisions }}
- {{ . }}
{{- end }}
{{ end }}
# Backlog
{{ range .Epics }}
## {{ .Title }}

*{{ .Goal }}*
{{ range stories . }}
### {{ .Title }}
{{ if .Description }}
{{ .Description }}
{{ end }}
**Acceptance criteria**
{{ range .AcceptanceCriteria }}
- {{ criterion . }}
{{- end }}
{{ if .Estimate }}
Estimate: {{ .Estimate }}
{{- end }}
{{ if .Priority }}
Priority: {{ .Priority }}
{{- end }}
{{ end }}
{{- end }}
{{ with storyMap . }}
## Story Map

` + "```mermaid" + `
{{ . }}` + "```" + `
{{ end }}
{{ if .Omitted }}
## Not Included

These features had no story that could be derived from the facts gathered:
{{ range .Omitted }}
- {{ . }}
{{- end }}
{{ end }}
{{ if .Advisory }}
## Known Gaps
{{ range .Advisory }}
- {{ code .Rule }} {{ target . }}{{ .Message }}
{{- end }}
{{ end }}
{{ if .Blocking }}
## Blocking Issues
{{ range .Blocking }}
- {{ code .Rule }} {{ target . }}{{ .Message }}
{{- end }}
{{ end }}
---
Generation {{ .Generation }}{{ if .Approved }}, approved{{ end }}
`

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; color: #1f2328; }
h1 { border-bottom: 1px solid #d0d7de; padding-bottom: .3rem; }
blockquote { border-left: 4px solid #d4a72c; margin: 0; padding: .2rem 1rem; background: #fff8c5; }
code { background: #f6f8fa; padding: .1rem .3rem; border-radius: 4px; }
</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`
