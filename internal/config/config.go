package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database Database `envPrefix:"DATABASE_"`
	Session  Session  `envPrefix:"SESSION_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Upload   Upload   `envPrefix:"UPLOAD_"`
	CORS     CORS     `envPrefix:"CORS_"`
	Auth     Auth     `envPrefix:"AUTH_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver      string `env:"DRIVER" envDefault:"mysql"` // mysql, postgres, sqlite
	URL         string `env:"URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type Session struct {
	Backend      string        `env:"BACKEND" envDefault:"database"` // memory, database, redis, jwt
	CookieName   string        `env:"COOKIE_NAME" envDefault:"carparts_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	TTL          time.Duration `env:"TTL" envDefault:"24h"`
	Secret       string        `env:"SECRET"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type Stripe struct {
	BaseApiURL       string        `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey        string        `env:"SECRET_KEY"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	Currency         string        `env:"CURRENCY" envDefault:"eur"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"15s"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"300s"`
	SuccessURL       string        `env:"SUCCESS_URL" envDefault:"http://localhost:5173/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelURL        string        `env:"CANCEL_URL" envDefault:"http://localhost:5173/cart"`
}

type Upload struct {
	Dir        string `env:"DIR" envDefault:"./assets/products"`
	PublicPath string `env:"PUBLIC_PATH" envDefault:"/assets/products"`
	MaxBytes   int64  `env:"MAX_BYTES" envDefault:"5242880"`
}

type CORS struct {
	AllowOrigins []string `env:"ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
}

type Auth struct {
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`
	VerifyURL       string        `env:"VERIFY_URL" envDefault:"http://localhost:5173/verify-email"`
	LoginRateLimit  float64       `env:"LOGIN_RATE_LIMIT" envDefault:"5"`
}
