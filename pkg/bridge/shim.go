package bridge

import (
	_ "embed"

	"github.com/cjdenio/webbridge/pkg/models"
)

// ShimPath is where the content-side helper script is served.
const ShimPath = "/__webbridge/bridge.js"

//go:embed webbridge.js
var shim []byte

// ShimResponse serves the embedded helper script. The response borrows the
// embedded bytes, which live for the whole process.
func ShimResponse(*models.Request) (models.Response, error) {
	return models.NewBinaryView(shim, models.WithContentType("application/javascript")), nil
}
