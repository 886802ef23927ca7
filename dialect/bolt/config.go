package bolt

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a named multi-database configuration, typically loaded from a
// YAML file:
//
//	databases:
//	  default:
//	    host: localhost
//	    port: 7687
//	    username: neo4j
//	    password: secret
//	  archive:
//	    uri: bolt+s://archive.internal:7687
//	    username: neo4j
//	    password: secret
//	    database: archive
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases"`
}

// DatabaseConfig configures the connection to one named database.
type DatabaseConfig struct {
	// URI is the full connection URI ("bolt://host:port", "bolt+s://…",
	// "neo4j://…"). When empty it is assembled from Host and Port.
	URI string `yaml:"uri"`

	// Host and Port assemble a "bolt://host:port" URI when URI is unset.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Username and Password authenticate the connection.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Database selects the database within the server. Empty uses the
	// server default.
	Database string `yaml:"database"`

	// MaxConnectionPoolSize limits the connection pool. Zero or negative
	// uses the driver default.
	MaxConnectionPoolSize int `yaml:"max_connection_pool_size"`

	// ConnectionTimeout bounds connection acquisition. Zero uses the
	// driver default.
	ConnectionTimeout Duration `yaml:"connection_timeout"`
}

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "5s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// LoadConfig reads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bolt: reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration document and validates every
// entry.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("bolt: parsing config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration: at least one database, every entry
// valid.
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return fmt.Errorf("bolt: config declares no databases")
	}
	for name, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("bolt: database %q: %w", name, err)
		}
	}
	return nil
}

// Validate checks one database entry.
func (c DatabaseConfig) Validate() error {
	if c.URI == "" {
		if c.Host == "" {
			return fmt.Errorf("uri or host must be set")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("port %d out of range", c.Port)
		}
	} else if !validScheme(c.URI) {
		return fmt.Errorf("unsupported URI scheme in %q", c.URI)
	}
	if c.Username == "" {
		return fmt.Errorf("username must be set")
	}
	if c.Password == "" {
		return fmt.Errorf("password must be set")
	}
	return nil
}

// URL returns the effective connection URI, assembling "bolt://host:port"
// when no explicit URI was configured.
func (c DatabaseConfig) URL() string {
	if c.URI != "" {
		return c.URI
	}
	return fmt.Sprintf("bolt://%s:%d", c.Host, c.Port)
}

var schemes = []string{"bolt://", "bolt+s://", "bolt+ssc://", "neo4j://", "neo4j+s://", "neo4j+ssc://"}

func validScheme(uri string) bool {
	for _, s := range schemes {
		if strings.HasPrefix(uri, s) {
			return true
		}
	}
	return false
}
