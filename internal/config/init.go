package config

import (
	"fmt"
	"os"
)

// Init writes an example configuration file. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config: %s already exists (use --force to overwrite)", path)
	}

	return os.WriteFile(path, []byte(exampleConfig), 0o644)
}

const exampleConfig = `title: My Site
base_url: https://example.com
source: source
output: public

copy:
  - "*.css"
  - "*.png"

pages:
  - pattern: "*.md"
    layout: layouts/page.html

feed:
  pattern: "articles/*.md"
`
