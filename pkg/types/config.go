package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// DATABASE_URL wins; the discrete values are the fallback chain.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      uint   `envconfig:"DB_PORT" default:"5432"`
	DBName      string `envconfig:"DB_NAME" default:"mse_reports"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`

	// Photo blob storage. The S3 variant is used when BLOB_S3_BUCKET is set,
	// otherwise photos land content-addressed under BLOB_DIR.
	BlobDir         string `envconfig:"BLOB_DIR" default:"data/photos"`
	BlobS3Bucket    string `envconfig:"BLOB_S3_BUCKET"`
	BlobS3Region    string `envconfig:"BLOB_S3_REGION" default:"us-east-1"`
	BlobS3Endpoint  string `envconfig:"BLOB_S3_ENDPOINT"`
	BlobS3AccessKey string `envconfig:"BLOB_S3_ACCESS_KEY"`
	BlobS3SecretKey string `envconfig:"BLOB_S3_SECRET_KEY"`

	// Outbound mail
	MailEnabled  bool   `envconfig:"MAIL_ENABLED" default:"false"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@localhost"`
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     uint   `envconfig:"SMTP_PORT" default:"25"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
}
