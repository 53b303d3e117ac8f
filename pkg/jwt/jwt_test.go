package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/distrifresh/almacen-api/pkg/jwt"
)

const (
	testSecret = "secreto-de-prueba"
	testIssuer = "almacen-api-test"
)

func TestGenerateYParse_RoundTrip(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "user-1", "empleado", testIssuer, 60)
	require.NoError(t, err)

	userID, role, err := pkgjwt.Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "empleado", role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "user-1", "admin", testIssuer, 60)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse("otro-secreto", tok)
	require.Error(t, err)
}

func TestParse_TokenExpirado(t *testing.T) {
	tok, err := pkgjwt.Generate(testSecret, "user-1", "admin", testIssuer, -5)
	require.NoError(t, err)

	_, _, err = pkgjwt.Parse(testSecret, tok)
	require.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "user-1", "admin", testIssuer, 60)
	require.Error(t, err)
}
