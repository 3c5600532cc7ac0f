package scaffold

import "text/template"

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="/assets/site.css">
</head>
<body>
  <main data-page="{{.Name}}">
    <h1>{{.Title}}</h1>
    <p>Replace this placeholder with the {{.Name}} page content.</p>
  </main>
</body>
</html>
`))

var pageMetaTmpl = template.Must(template.New("pagemeta").Parse(`{
  "name": "{{.Name}}",
  "title": "{{.Title}}",
  "route": "/{{.Name}}",
  "layout": "default",
  "draft": true
}
`))

var agentManifestTmpl = template.Must(template.New("agent").Parse(`{
  "name": "{{.Name}}",
  "description": "{{.Description}}",
  "entry": "handler.mjs",
  "lifecycle": {
    "init": true,
    "run": true,
    "cleanup": true
  }
}
`))

var agentReadmeTmpl = template.Must(template.New("agentreadme").Parse(`# {{.Name}}

{{.Description}}

Generated by jbish. The manifest in agent.json declares the lifecycle hooks
the runtime calls; fill in handler.mjs with the actual behaviour.
`))

var projectJSONTmpl = template.Must(template.New("projectjson").Parse(`{
  "name": "{{.Name}}",
  "schema": 1,
  "pagesDir": "pages",
  "agentsDir": "agents"
}
`))

var projectTOMLTmpl = template.Must(template.New("projecttoml").Parse(`name = "{{.Name}}"
schema = 1

[build]
command = "npm run build"
output = "dist"

[preview]
command = "npm run dev"
`))
