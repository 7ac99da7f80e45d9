package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del servicio (lectura vía Viper desde env y opcionalmente archivo).
// El motor de transmisión no lee esta configuración: cmd/api la traduce a ElectronicBillingConfig.
type Config struct {
	App          AppConfig
	JWT          JWTConfig
	HTTP         HTTPConfig
	DIAN         DIANConfig
	FEG          FEGConfig
	Alegra       AlegraConfig
	Custom       CustomConfig
	Transmission TransmissionConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DIANConfig datos del emisor y credenciales para el modo DIAN_DIRECT.
type DIANConfig struct {
	Provider     string // proveedor por defecto cuando la petición no trae uno
	Environment  string // production | test
	IssuerNIT    string
	IssuerName   string
	TechnicalKey string // clave técnica de la resolución (obligatoria para CUFE real)
	SoftwareID   string
	SoftwarePIN  string
	TestSetID    string
	CertPath     string // ruta al .p12 (vacío = firma de prueba en habilitación)
	CertPassword string
}

// FEGConfig gateway FEG.
type FEGConfig struct {
	URL   string
	Token string
}

// AlegraConfig credenciales de Alegra.
type AlegraConfig struct {
	Email   string
	Token   string
	BaseURL string
}

// CustomConfig proveedor HTTP genérico.
type CustomConfig struct {
	URL    string
	APIKey string
}

// TransmissionConfig límites del orquestador.
type TransmissionConfig struct {
	TimeoutSeconds int
}

// Timeout plazo por transmisión.
func (c TransmissionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, HTTP_PORT, JWT_SECRET, DIAN_*, FEG_*, ALEGRA_*.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "facturacion-electronica"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "facturacion-electronica"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		DIAN: DIANConfig{
			Provider:     getString(v, "DIAN_PROVIDER", "DIAN_DIRECT"),
			Environment:  getString(v, "DIAN_ENVIRONMENT", "test"),
			IssuerNIT:    getString(v, "DIAN_ISSUER_NIT", ""),
			IssuerName:   getString(v, "DIAN_ISSUER_NAME", ""),
			TechnicalKey: getString(v, "DIAN_TECHNICAL_KEY", ""),
			SoftwareID:   getString(v, "DIAN_SOFTWARE_ID", ""),
			SoftwarePIN:  getString(v, "DIAN_SOFTWARE_PIN", ""),
			TestSetID:    getString(v, "DIAN_TEST_SET_ID", ""),
			CertPath:     getString(v, "DIAN_CERT_PATH", ""),
			CertPassword: getString(v, "DIAN_CERT_PASSWORD", ""),
		},
		FEG: FEGConfig{
			URL:   getString(v, "FEG_URL", ""),
			Token: getString(v, "FEG_TOKEN", ""),
		},
		Alegra: AlegraConfig{
			Email:   getString(v, "ALEGRA_EMAIL", ""),
			Token:   getString(v, "ALEGRA_TOKEN", ""),
			BaseURL: getString(v, "ALEGRA_BASE_URL", ""),
		},
		Custom: CustomConfig{
			URL:    getString(v, "CUSTOM_API_URL", ""),
			APIKey: getString(v, "CUSTOM_API_KEY", ""),
		},
		Transmission: TransmissionConfig{
			TimeoutSeconds: getInt(v, "TRANSMISSION_TIMEOUT_SECONDS", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	env := strings.ToLower(strings.TrimSpace(c.DIAN.Environment))
	if env != "production" && env != "test" {
		return fmt.Errorf("config: DIAN_ENVIRONMENT debe ser production o test, se recibió %q", c.DIAN.Environment)
	}
	c.DIAN.Environment = env
	if c.Transmission.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: TRANSMISSION_TIMEOUT_SECONDS debe ser mayor a cero")
	}
	if c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio en producción")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
