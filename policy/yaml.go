package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlTable struct {
	Policies []Policy `yaml:"policies"`
}

// LoadYAML reads a table from r. Policies keep their document order.
//
//	policies:
//	  - pattern: /member/jobs
//	    requireAuth: true
//	    allowedRoles: [member]
//	    redirectTo: /login
//	  - pattern: /
func LoadYAML(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlTable
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("policy: decode yaml: %w", err)
	}
	return NewTable(doc.Policies...)
}

// LoadYAMLFile reads a table from the file at path.
func LoadYAMLFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}
