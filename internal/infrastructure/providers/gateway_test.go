package providers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
	"github.com/jhoicas/facturacion-electronica/internal/domain/entity"
	"github.com/jhoicas/facturacion-electronica/internal/infrastructure/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_FormasAceptadas(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want []string
	}{
		"texto":          {`"NIT inválido"`, []string{"NIT inválido"}},
		"lista":          {`["a", "b"]`, []string{"a", "b"}},
		"objetos":        {`[{"message":"a"},{"message":"b"}]`, []string{"a", "b"}},
		"mapa por campo": {`{"customer.nit":["requerido"],"number":"duplicado"}`, []string{"customer.nit: requerido", "number: duplicado"}},
		"null":           {`null`, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var m providers.Messages
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &m))
			assert.Equal(t, tc.want, []string(m))
		})
	}
}

func TestGatewayResponse_ToResponse(t *testing.T) {
	body := []byte(`{"success":true,"cufe":"remoto","qrCode":"qr","pdfUrl":"https://x/pdf","xmlUrl":"https://x/xml","status":"accepted","message":"ok","trackId":"t-1"}`)
	gr, ok := providers.ParseGatewayResponse(body)
	require.True(t, ok)

	resp := gr.ToResponse("local", body)
	assert.True(t, resp.Success)
	assert.Equal(t, entity.StatusAccepted, resp.Status)
	assert.Equal(t, "remoto", resp.CUFE, "prevalece el CUFE del gateway")
	assert.Equal(t, "qr", resp.QRCode)
	assert.Equal(t, "https://x/pdf", resp.PDFURL)
	assert.Equal(t, "https://x/xml", resp.XMLURL)
	assert.Equal(t, "t-1", resp.TrackID)
	assert.Equal(t, "ok", resp.Message)
	assert.Empty(t, resp.ErrorKind)
}

func TestGatewayResponse_Rechazo(t *testing.T) {
	body := []byte(`{"success":false,"message":"Regla FAD06","errors":["CUFE mal calculado"]}`)
	gr, ok := providers.ParseGatewayResponse(body)
	require.True(t, ok)

	resp := gr.ToResponse("local", body)
	assert.False(t, resp.Success)
	assert.Equal(t, entity.StatusRejected, resp.Status)
	assert.Equal(t, entity.ErrorKindRejection, resp.ErrorKind)
	assert.Equal(t, "local", resp.CUFE)
	assert.Equal(t, []string{"CUFE mal calculado"}, resp.Errors)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, entity.StatusAccepted, providers.NormalizeStatus("signed", false))
	assert.Equal(t, entity.StatusPending, providers.NormalizeStatus("processing", true))
	assert.Equal(t, entity.StatusRejected, providers.NormalizeStatus("REJECTED", true))
	assert.Equal(t, entity.StatusAccepted, providers.NormalizeStatus("", true))
	assert.Equal(t, entity.StatusRejected, providers.NormalizeStatus("desconocido", false))
}

func TestHTTPError_Clasificacion(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrConfiguration},
		{http.StatusForbidden, domain.ErrConfiguration},
		{http.StatusUnprocessableEntity, domain.ErrRejected},
		{http.StatusBadGateway, domain.ErrTransport},
	}
	for _, tc := range cases {
		err := providers.HTTPError("FEG", &providers.RawResponse{StatusCode: tc.status, Body: []byte(`{"message":"detalle"}`)})
		assert.True(t, errors.Is(err, tc.want), "HTTP %d", tc.status)
		assert.Contains(t, err.Error(), "detalle")
	}
}

func TestBasicAuth(t *testing.T) {
	assert.Equal(t, "Basic dXNlckBleGFtcGxlLmNvbTp0b2tlbg==", providers.BasicAuth("user@example.com", "token"))
	assert.Equal(t, "Bearer abc", providers.BearerAuth("abc"))
}
