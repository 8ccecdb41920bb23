package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBConn    string
	LogLevel  string
	JWTSecret string
	// HMACSecret signs the terms stamp stored on each loan.
	HMACSecret string
	BanRepURL  string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	// ArrearsAnnualRate over ArrearsYearDays gives the daily penalty rate
	// applied per day late. The 18%/366 convention is the cooperative's
	// statutory default.
	ArrearsAnnualRate decimal.Decimal
	ArrearsYearDays   int
	// ProtectionRate is the portfolio protection fee charged per installment
	// against the previous period's remaining balance.
	ProtectionRate decimal.Decimal
	// SweepSchedule is the cron expression for the daily overdue sweep.
	SweepSchedule string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	arrearsRate, err := getEnvDecimal("ARREARS_ANNUAL_RATE", "0.18")
	if err != nil {
		return nil, err
	}
	protectionRate, err := getEnvDecimal("PROTECTION_RATE", "0.001")
	if err != nil {
		return nil, err
	}
	yearDays, err := strconv.Atoi(getEnv("ARREARS_YEAR_DAYS", "366"))
	if err != nil {
		return nil, fmt.Errorf("ARREARS_YEAR_DAYS must be an integer: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBConn:            getEnv("DB_CONN", "host=localhost port=5432 user=coop password=coop dbname=loans sslmode=disable"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		HMACSecret:        getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		BanRepURL:         getEnv("BANREP_URL", "https://totoro.banrep.gov.co/estadisticas-economicas/rest/rates"),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "25"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", "cartera@coopfin.example"),
		ArrearsAnnualRate: arrearsRate,
		ArrearsYearDays:   yearDays,
		ProtectionRate:    protectionRate,
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "0 2 * * *"),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.ArrearsYearDays <= 0 {
		return nil, fmt.Errorf("ARREARS_YEAR_DAYS must be positive")
	}
	if cfg.ArrearsAnnualRate.IsNegative() || cfg.ProtectionRate.IsNegative() {
		return nil, fmt.Errorf("penalty and protection rates must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvDecimal(key, defaultVal string) (decimal.Decimal, error) {
	raw := getEnv(key, defaultVal)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal value: %w", key, err)
	}
	return d, nil
}
