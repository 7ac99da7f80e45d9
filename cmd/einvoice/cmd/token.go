package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/facturacion-electronica/pkg/config"
	"github.com/jhoicas/facturacion-electronica/pkg/jwt"
	"github.com/spf13/cobra"
)

var (
	tokenClient    string
	tokenScopes    []string
	tokenIssuerNIT string
	tokenMinutes   int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un token JWT para un cliente del API",
	Long: `Firma un token para /api/electronic-billing con JWT_SECRET, JWT_ISSUER y
JWT_EXPIRATION_MINUTES de la configuración del servicio (.env o variables de entorno).

Alcances: billing:send (send y validate) y billing:status (status).
Con --issuer-nit el token solo permite facturar con ese NIT.`,
	Example: `  einvoice token --client pos-caja-01 --scopes billing:send --issuer-nit 900123456-8`,
	Args:    cobra.NoArgs,
	RunE:    runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "Identificador del cliente (requerido)")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scopes", []string{jwt.ScopeSend, jwt.ScopeStatus}, "Alcances separados por coma")
	tokenCmd.Flags().StringVar(&tokenIssuerNIT, "issuer-nit", "", "Restringe el token a un emisor")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("client")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET no está configurado")
	}
	if strings.TrimSpace(tokenClient) == "" {
		return fmt.Errorf("--client no puede estar vacío")
	}
	for _, s := range tokenScopes {
		if s != jwt.ScopeSend && s != jwt.ScopeStatus {
			return fmt.Errorf("alcance desconocido %q", s)
		}
	}
	minutes := cfg.JWT.Expiration
	if tokenMinutes > 0 {
		minutes = tokenMinutes
	}

	token, err := jwt.Generate(cfg.JWT.Secret, tokenClient, tokenIssuerNIT, tokenScopes, cfg.JWT.Issuer, minutes)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"token":      token,
		"client_id":  tokenClient,
		"scopes":     tokenScopes,
		"issuer_nit": tokenIssuerNIT,
		"expires_at": time.Now().Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339),
	})
}
