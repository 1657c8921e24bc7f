package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `json:"port"`
	Env         string `json:"env"` // "development" | "production"
	AppURL      string `json:"appUrl"`
	LogLevel    string `json:"logLevel"`
	DBURL       string `json:"dbUrl"`
	AutoMigrate bool   `json:"autoMigrate"`
	ExportDir   string `json:"exportDir"`

	AirtableURL string `json:"airtableUrl"`
	GeminiURL   string `json:"geminiUrl"`
	GeminiModel string `json:"geminiModel"`

	// Supabase auth. JWKS wins over the shared secret when both are set.
	SupabaseURL       string `json:"supabaseUrl"`
	SupabaseAnonKey   string `json:"supabaseAnonKey"`
	SupabaseJWTSecret string `json:"supabaseJwtSecret"`
	SupabaseJWKSURL   string `json:"supabaseJwksUrl"`

	StripeSecretKey     string `json:"stripeSecretKey"`
	StripeWebhookSecret string `json:"stripeWebhookSecret"`
	StripePriceID       string `json:"stripePriceId"`
	StripeProductID     string `json:"stripeProductId"`
}

func def() Config {
	return Config{
		Port:        "8080",
		Env:         "development",
		AppURL:      "http://localhost:8080",
		LogLevel:    "info",
		AutoMigrate: true,
		ExportDir:   "exports",

		AirtableURL: "https://api.airtable.com",
		GeminiURL:   "https://generativelanguage.googleapis.com",
		GeminiModel: "gemini-2.0-flash",
	}
}

func (c Config) Development() bool {
	return strings.EqualFold(c.Env, "development")
}

func loadJSON(path string, c Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func parseBool(v string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		return parseBool(v, fallback)
	}
	return fallback
}

// Load reads basemap.json (or -config), then .env and BASEMAP_* variables, then flags.
// Variables already set in the process win over .env.
func Load(args []string) (Config, error) {
	return load("basemap.json", ".env", args)
}

func load(jsonPath, envPath string, args []string) (Config, error) {
	// -config must be known before the file layer
	pre := flag.NewFlagSet("basemap", flag.ContinueOnError)
	pre.SetOutput(nopWriter{})
	cfgPath := pre.String("config", jsonPath, "")
	_ = pre.Parse(filterFlag(args, "config"))
	jsonPath = *cfgPath

	cfg := def()
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		c2, err := loadJSON(jsonPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = c2
	}

	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return cfg, err
			}
		}
	}

	cfg.Port = getenv("BASEMAP_PORT", getenv("PORT", cfg.Port))
	cfg.Env = getenv("BASEMAP_ENV", cfg.Env)
	cfg.AppURL = getenv("BASEMAP_APP_URL", cfg.AppURL)
	cfg.LogLevel = getenv("BASEMAP_LOG_LEVEL", cfg.LogLevel)
	cfg.DBURL = getenv("BASEMAP_DB_URL", cfg.DBURL)
	cfg.AutoMigrate = getenvBool("BASEMAP_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.ExportDir = getenv("BASEMAP_EXPORT_DIR", cfg.ExportDir)
	cfg.AirtableURL = getenv("BASEMAP_AIRTABLE_URL", cfg.AirtableURL)
	cfg.GeminiURL = getenv("BASEMAP_GEMINI_URL", cfg.GeminiURL)
	cfg.GeminiModel = getenv("BASEMAP_GEMINI_MODEL", cfg.GeminiModel)
	cfg.SupabaseURL = getenv("BASEMAP_SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseAnonKey = getenv("BASEMAP_SUPABASE_ANON_KEY", cfg.SupabaseAnonKey)
	cfg.SupabaseJWTSecret = getenv("BASEMAP_SUPABASE_JWT_SECRET", cfg.SupabaseJWTSecret)
	cfg.SupabaseJWKSURL = getenv("BASEMAP_SUPABASE_JWKS_URL", cfg.SupabaseJWKSURL)
	cfg.StripeSecretKey = getenv("BASEMAP_STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.StripeWebhookSecret = getenv("BASEMAP_STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.StripePriceID = getenv("BASEMAP_STRIPE_PRICE_ID", cfg.StripePriceID)
	cfg.StripeProductID = getenv("BASEMAP_STRIPE_PRODUCT_ID", cfg.StripeProductID)

	fs := flag.NewFlagSet("basemap", flag.ContinueOnError)
	fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	env := fs.String("env", cfg.Env, "Environment (development/production)")
	appURL := fs.String("app-url", cfg.AppURL, "Public base URL")
	level := fs.String("log-level", cfg.LogLevel, "Log level")
	db := fs.String("db", cfg.DBURL, "Postgres URL (empty = billing disabled)")
	auto := fs.String("auto-migrate", strconv.FormatBool(cfg.AutoMigrate), "Apply billing DDL on start (true/false)")
	exports := fs.String("export-dir", cfg.ExportDir, "Directory for saved exports")
	model := fs.String("gemini-model", cfg.GeminiModel, "Gemini model")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.Env = strings.TrimSpace(*env)
	cfg.AppURL = strings.TrimRight(strings.TrimSpace(*appURL), "/")
	cfg.LogLevel = strings.TrimSpace(*level)
	cfg.DBURL = strings.TrimSpace(*db)
	cfg.AutoMigrate = parseBool(*auto, cfg.AutoMigrate)
	cfg.ExportDir = strings.TrimSpace(*exports)
	cfg.GeminiModel = strings.TrimSpace(*model)

	return cfg, nil
}

// filterFlag keeps only -name / --name (and its value) from args.
func filterFlag(args []string, name string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := strings.TrimLeft(args[i], "-")
		if a == name && i+1 < len(args) {
			out = append(out, "-"+name, args[i+1])
			i++
		} else if strings.HasPrefix(a, name+"=") {
			out = append(out, "-"+a)
		}
	}
	return out
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
