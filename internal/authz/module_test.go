package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havencrm/havencrm/internal/authz"
)

func TestDecodeMatrix(t *testing.T) {
	matrix, err := authz.DecodeMatrix([]byte(`{
		"leads": {"view": true, "create": true},
		"properties": {"view": true, "delete": false}
	}`))
	require.NoError(t, err)

	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionView))
	assert.True(t, matrix.Allows(authz.ModuleLeads, authz.ActionCreate))
	assert.False(t, matrix.Allows(authz.ModuleLeads, authz.ActionEdit))
	assert.True(t, matrix.Allows(authz.ModuleProperties, authz.ActionView))
	assert.False(t, matrix.Allows(authz.ModuleProperties, authz.ActionDelete))
	// Modules absent from the document deny everything.
	assert.False(t, matrix.Allows(authz.ModuleUsers, authz.ActionView))
}

func TestDecodeMatrixRejectsUnknownModule(t *testing.T) {
	_, err := authz.DecodeMatrix([]byte(`{"payments": {"view": true}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payments")
}

func TestDecodeMatrixRejectsUnknownAction(t *testing.T) {
	_, err := authz.DecodeMatrix([]byte(`{"leads": {"approve": true}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approve")
}

func TestDecodeMatrixRejectsMalformedJSON(t *testing.T) {
	_, err := authz.DecodeMatrix([]byte(`{"leads": "yes"`))
	require.Error(t, err)
}

func TestEncodeDecodeMatrixRoundTrip(t *testing.T) {
	original := authz.Matrix{
		authz.ModuleLeads:    {View: true, Edit: true},
		authz.ModuleSettings: authz.AllActions(),
	}
	data, err := authz.EncodeMatrix(original)
	require.NoError(t, err)

	decoded, err := authz.DecodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestAllowAllCoversEveryCell(t *testing.T) {
	matrix := authz.AllowAll()
	for _, module := range authz.Modules() {
		for _, action := range authz.Actions() {
			assert.True(t, matrix.Allows(module, action), "%s/%s", module, action)
		}
	}
}
