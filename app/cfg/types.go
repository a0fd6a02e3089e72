package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	Port            string
	BaseUrl         string
	WorkerLimit     int
	EnableScheduler bool
	TemplatesFile   string

	// External capabilities
	OpenAIAPIKey string
	OpenAIModel  string
	ResendAPIKey string
	EmailFrom    string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
