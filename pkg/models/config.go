package models

// Driver names accepted in database.driver
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the shared configuration file read by every command
type Config struct {
	Database   Database           `json:"database" yaml:"database" mapstructure:"database"`
	Paths      Paths              `json:"paths" yaml:"paths" mapstructure:"paths"`
	Load       LoadSettings       `json:"load" yaml:"load" mapstructure:"load"`
	Validation ValidationSettings `json:"validation" yaml:"validation" mapstructure:"validation"`
	Logging    Logging            `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// Database holds connection settings
type Database struct {
	Driver       string `json:"driver" yaml:"driver" mapstructure:"driver"`
	Host         string `json:"host" yaml:"host" mapstructure:"host"`
	Port         int    `json:"port" yaml:"port" mapstructure:"port"`
	User         string `json:"user" yaml:"user" mapstructure:"user"`
	Password     string `json:"password" yaml:"password" mapstructure:"password"`
	Database     string `json:"database" yaml:"database" mapstructure:"database"` // file path for sqlite
	UseKeyring   bool   `json:"use_keyring" yaml:"use_keyring" mapstructure:"use_keyring"`
	QueryTimeout string `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"` // e.g. "30s", empty for none
}

// Paths lists the project directories
type Paths struct {
	RawData       string `json:"raw_data" yaml:"raw_data" mapstructure:"raw_data"`
	ProcessedData string `json:"processed_data" yaml:"processed_data" mapstructure:"processed_data"`
	SQLQueries    string `json:"sql_queries" yaml:"sql_queries" mapstructure:"sql_queries"`
	Notebooks     string `json:"notebooks" yaml:"notebooks" mapstructure:"notebooks"`
}

// LoadSettings controls the load pipeline
type LoadSettings struct {
	BatchSize    int    `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
	SchemaFile   string `json:"schema_file" yaml:"schema_file" mapstructure:"schema_file"`
	ViewsFile    string `json:"views_file" yaml:"views_file" mapstructure:"views_file"`
	ProcessedCSV string `json:"processed_csv" yaml:"processed_csv" mapstructure:"processed_csv"`
}

// ValidationSettings tunes the data quality report
type ValidationSettings struct {
	// Rows whose total charges fall below monthly*tenure*ratio are flagged
	ChargeRatioThreshold float64 `json:"charge_ratio_threshold" yaml:"charge_ratio_threshold" mapstructure:"charge_ratio_threshold"`
}

// Logging selects log level and encoding
type Logging struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // "text" or "json"
}

// DefaultPort returns the conventional port for a driver
func DefaultPort(driver string) int {
	switch driver {
	case DriverPostgres:
		return 5432
	case DriverSQLite:
		return 0
	default:
		return 3306
	}
}
