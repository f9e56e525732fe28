// Package openapi holds the OpenAPI document served at /openapi.json.
package openapi

import _ "embed"

//go:embed users.json
var Document []byte
