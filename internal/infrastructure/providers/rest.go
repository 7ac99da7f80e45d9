package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
)

const maxResponseBytes = 1 << 20

// NewHTTPClient cliente por defecto de los adaptadores REST. El plazo efectivo lo fija el ctx.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

// RawResponse respuesta HTTP ya leída.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// OK indica un status 2xx.
func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// DoJSON serializa payload (si no es nil), ejecuta la petición y lee la respuesta completa.
// Solo falla por red o serialización: ErrTimeout si vence el ctx, ErrTransport en otro caso.
// El status HTTP lo interpreta el llamador.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload any) (*RawResponse, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: serializar request: %v", domain.ErrTransport, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: crear request %s %s: %v", domain.ErrTransport, method, url, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTimeout, method, url, err)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrTransport, err)
	}
	return &RawResponse{StatusCode: resp.StatusCode, Body: raw}, nil
}

// BearerAuth valor del header Authorization con token Bearer.
func BearerAuth(token string) string {
	return "Bearer " + token
}

// BasicAuth valor del header Authorization con Basic base64(user:secret).
func BasicAuth(user, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret))
}

// HTTPError convierte un status no exitoso en error de dominio:
// 401/403 credenciales inválidas (configuración), 5xx transporte, otros 4xx rechazo.
func HTTPError(provider string, resp *RawResponse) error {
	msg := ErrorSummary(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s rechazó las credenciales (HTTP %d): %s", domain.ErrConfiguration, provider, resp.StatusCode, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s respondió HTTP %d: %s", domain.ErrTransport, provider, resp.StatusCode, msg)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %s respondió HTTP %d: %s", domain.ErrRejected, provider, resp.StatusCode, msg)
	}
	return fmt.Errorf("%w: %s respondió HTTP %d inesperado", domain.ErrTransport, provider, resp.StatusCode)
}

// ErrorSummary intenta extraer un mensaje legible de un cuerpo de error JSON;
// si no puede, devuelve el cuerpo truncado.
func ErrorSummary(body []byte) string {
	var parsed struct {
		Message string   `json:"message"`
		Error   any      `json:"error"`
		Errors  Messages `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		parts := make([]string, 0, 1+len(parsed.Errors))
		if parsed.Message != "" {
			parts = append(parts, parsed.Message)
		}
		switch e := parsed.Error.(type) {
		case string:
			parts = append(parts, e)
		case map[string]any:
			if m, ok := e["message"].(string); ok {
				parts = append(parts, m)
			}
		}
		parts = append(parts, parsed.Errors...)
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return Truncate(strings.TrimSpace(string(body)), 300)
}

// Truncate recorta s a n bytes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
