package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yorickpeterse/wobsite/internal/logfields"
)

// scaffoldFiles is the starter site written by init, relative to the working
// directory. Paths line up with the example configuration.
var scaffoldFiles = []struct {
	path    string
	content string
}{
	{filepath.Join("layouts", "page.html"), scaffoldLayout},
	{filepath.Join("source", "index.md"), scaffoldIndexPage},
	{filepath.Join("source", "css", "style.css"), scaffoldStylesheet},
}

// scaffoldSite writes the starter source tree. Existing files are kept
// unless force is set.
func scaffoldSite(force bool) error {
	for _, file := range scaffoldFiles {
		if _, err := os.Stat(file.path); err == nil && !force {
			slog.Info("keeping existing file", logfields.Path(file.path))
			continue
		}

		if err := os.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(file.path, []byte(file.content), 0o644); err != nil {
			return err
		}

		slog.Info("created", logfields.Path(file.path))
	}

	return nil
}

const scaffoldLayout = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{ .Title }} - {{ .Site.Title }}</title>
    <link rel="stylesheet" href="/css/style.css">
  </head>
  <body>
    {{ .Body }}
  </body>
</html>
`

const scaffoldIndexPage = `---
{ "title": "Home" }
---

# Welcome

Edit ` + "`source/index.md`" + ` and run ` + "`wobsite serve`" + ` to preview
changes as you save them.
`

const scaffoldStylesheet = `body {
  font-family: sans-serif;
  max-width: 40rem;
  margin: 2rem auto;
  padding: 0 1rem;
}
`
