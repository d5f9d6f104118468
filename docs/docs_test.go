package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type operation struct {
	Tags      []string                   `json:"tags"`
	Responses map[string]json.RawMessage `json:"responses"`
}

type document struct {
	Paths       map[string]map[string]operation `json:"paths"`
	Definitions map[string]struct {
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"definitions"`
}

func loadDocument(t *testing.T) document {
	t.Helper()
	var doc document
	require.NoError(t, json.Unmarshal(SwaggerJSON, &doc))
	return doc
}

func TestSwaggerJSON_Routes(t *testing.T) {
	doc := loadDocument(t)

	tests := []struct {
		path      string
		method    string
		responses []string
	}{
		{"/admin/clients", "post", []string{"201", "400", "429", "502"}},
		{"/admin/clients/{id}", "get", []string{"200", "404", "502"}},
		{"/admin/clients/{id}", "delete", []string{"204", "404", "502"}},
		{"/admin/clients/rotate/{id}", "post", []string{"200", "400", "404", "502"}},
		{"/sync/clients", "post", []string{"200", "400", "500"}},
		{"/token-hook", "post", []string{"200", "400", "403"}},
		{"/health", "get", []string{"200"}},
		{"/ready", "get", []string{"200", "503"}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			op, ok := doc.Paths[tt.path][tt.method]
			require.True(t, ok, "operation is not documented")
			assert.NotEmpty(t, op.Tags)
			for _, code := range tt.responses {
				assert.Contains(t, op.Responses, code)
			}
		})
	}
}

func TestSwaggerJSON_Definitions(t *testing.T) {
	doc := loadDocument(t)

	target, ok := doc.Definitions["domain.SyncTarget"]
	require.True(t, ok)
	assert.Contains(t, target.Properties, "clients")

	clientSpec, ok := doc.Definitions["domain.ClientSpec"]
	require.True(t, ok)
	for _, field := range []string{
		"client_id",
		"client_secret_hash",
		"redirect_uris",
		"jwks",
		"backchannel_logout_session_required",
		"frontchannel_logout_session_required",
	} {
		assert.Contains(t, clientSpec.Properties, field)
	}

	_, ok = doc.Definitions["errors.ErrorResponse"]
	assert.True(t, ok)
}
