// Package docs holds the OpenAPI description of the HTTP surface.
// swagger.json is generated from the handler annotations.
package docs

import _ "embed"

//go:generate swag init -d ../ -g cmd/main.go -o . --outputTypes json --parseInternal

//go:embed swagger.json
var SwaggerJSON []byte
