package loader

import (
	"bytes"
	_ "embed"

	"github.com/hupe1980/mimetypes"
)

//go:embed data/mime.types
var defaultDefinitions []byte

// DefaultRegistry builds a fresh registry from the bundled definitions.
// Every call constructs a new instance; there is no process-wide singleton
// and no implicit "already loaded" state.
func DefaultRegistry(optFns ...mimetypes.RegistryOption) (*mimetypes.Registry, error) {
	return Parse(bytes.NewReader(defaultDefinitions), optFns...)
}
