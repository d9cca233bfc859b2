package config

import "time"

type AppConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"lexsync"`
	PodName     string `env:"POD_NAME" envDefault:"local"`
	Namespace   string `env:"POD_NAMESPACE" envDefault:"default"`
	LocalDev    bool   `env:"LOCAL_DEV" envDefault:"false"`
}

type DatabaseConfig struct {
	Host            string `env:"LEXSYNC_POSTGRES_HOST,required"`
	Port            string `env:"LEXSYNC_POSTGRES_PORT,required" envDefault:"5432"`
	User            string `env:"LEXSYNC_POSTGRES_USER,required"`
	DBName          string `env:"LEXSYNC_POSTGRES_DB_NAME,required"`
	Password        string `env:"LEXSYNC_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"LEXSYNC_POSTGRES_DB_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int    `env:"LEXSYNC_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"2"`
	ConnMaxLifetime int    `env:"LEXSYNC_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"LEXSYNC_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"LEXSYNC_POSTGRES_SSL_MODE" envDefault:"require"`
}

type ImapConfig struct {
	Host          string        `env:"IMAP_HOST,required"`
	Port          int           `env:"IMAP_PORT" envDefault:"993"`
	Encryption    string        `env:"IMAP_ENCRYPTION" envDefault:"ssl"` // ssl | tls | none
	ValidateCert  bool          `env:"IMAP_VALIDATE_CERT" envDefault:"true"`
	Username      string        `env:"IMAP_USERNAME,required"`
	Password      string        `env:"IMAP_PASSWORD,required"`
	Mailbox       string        `env:"IMAP_MAILBOX" envDefault:"INBOX"`
	DefaultSearch string        `env:"IMAP_DEFAULT_SEARCH" envDefault:"UNSEEN"`
	NativeAdapter string        `env:"IMAP_NATIVE_ADAPTER" envDefault:"enmime"` // enmime | bodystructure
	Timeout       time.Duration `env:"IMAP_TIMEOUT" envDefault:"30s"`
}

type LexwareConfig struct {
	BaseURI        string        `env:"LEXWARE_BASE_URI" envDefault:"https://api.lexware.io"`
	APIKey         string        `env:"LEXWARE_API_KEY,required"`
	Tenant         string        `env:"LEXWARE_TENANT"`
	UploadEndpoint string        `env:"LEXWARE_UPLOAD_ENDPOINT" envDefault:"/v1/files"`
	MaxAttempts    int           `env:"LEXWARE_MAX_ATTEMPTS" envDefault:"3"`
	BaseSleepMs    int           `env:"LEXWARE_BASE_SLEEP_MS" envDefault:"500"`
	RatePerSecond  float64       `env:"LEXWARE_RATE_LIMIT_PER_SECOND" envDefault:"2"`
	HTTPTimeout    time.Duration `env:"LEXWARE_HTTP_TIMEOUT" envDefault:"60s"`
}

type InspectorConfig struct {
	MaxBytes     int64    `env:"INSPECTOR_MAX_BYTES" envDefault:"20971520"`
	AllowedMimes []string `env:"INSPECTOR_ALLOWED_MIMES" envDefault:"application/pdf" envSeparator:","`
}

type StorageConfig struct {
	Root          string `env:"STORAGE_ROOT" envDefault:"var/pdfs"`
	MirrorEnabled bool   `env:"STORAGE_MIRROR_ENABLED" envDefault:"false"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	VoucherBucket   string `env:"BUCKET_NAME_VOUCHERS" envDefault:"vouchers"`
}

type NotifierConfig struct {
	Enabled     bool   `env:"NOTIFIER_ENABLED" envDefault:"true"`
	SMTPHost    string `env:"NOTIFIER_SMTP_HOST"`
	SMTPPort    int    `env:"NOTIFIER_SMTP_PORT" envDefault:"587"`
	SMTPUser    string `env:"NOTIFIER_SMTP_USER"`
	SMTPPass    string `env:"NOTIFIER_SMTP_PASSWORD"`
	FromAddress string `env:"NOTIFIER_FROM" envDefault:"lexsync@localhost"`
	ToAddress   string `env:"NOTIFIER_TO"`
}

type RabbitMQConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"lexsync"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"12233"`
}
