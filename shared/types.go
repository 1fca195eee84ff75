package shared

const (
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "postgres"

	DISK_IMAGE_BACKEND = "disk"
	GCS_IMAGE_BACKEND  = "gcs"
)

type ServerConfig struct {
	Safetrip SafetripConfig `mapstructure:"safetrip" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Google   GoogleConfig   `mapstructure:"google"`
	Images   ImagesConfig   `mapstructure:"images" validate:"required"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
}

type SafetripConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	AppUrl        string         `mapstructure:"url"`
	Cron          CronConfig     `mapstructure:"cron" validate:"required"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
}

type GoogleConfig struct {
	ApplicationCredentials string        `mapstructure:"applicationCredentials"`
	Storage                StorageConfig `mapstructure:"storage"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type StorageConfig struct {
	Bucket                    string `mapstructure:"bucket" validate:"required_with=EnableSqliteBackupAndSync"`
	Prefix                    string `mapstructure:"prefix" validate:"required_with=EnableSqliteBackupAndSync"`
	SqliteBackupSchedule      string `mapstructure:"sqliteBackupSchedule" validate:"required_with=EnableSqliteBackupAndSync"`
	EnableSqliteBackupAndSync bool   `mapstructure:"enableSqliteBackupAndSync"`
}

type ImagesConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=disk gcs"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
	DryRun              bool   `mapstructure:"dryRun"`
}
