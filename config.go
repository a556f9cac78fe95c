package recorder

import (
	"path/filepath"

	"github.com/goforj/recorder/recordercore"
)

const (
	defaultTapePrefix   = "tapes"
	defaultSQLTable     = "recorder_tapes"
	defaultDynamoTable  = "recorder_tapes"
	defaultDynamoRegion = "us-east-1"
)

// defaultFileDir keeps tapes next to the tests that recorded them.
func defaultFileDir() string {
	return filepath.Join("testdata", "tapes")
}

// StoreConfig controls how a tape Store is constructed.
type StoreConfig struct {
	recordercore.BaseConfig

	Driver Driver

	// FileDir controls where the file driver writes tapes.
	FileDir string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// MemcachedAddresses lists memcached servers (host:port).
	MemcachedAddresses []string

	// NATSKeyValue is required when DriverNATS is used.
	NATSKeyValue NATSKeyValue

	// DynamoClient overrides the client built from DynamoEndpoint/DynamoRegion.
	DynamoClient   DynamoAPI
	DynamoEndpoint string
	DynamoRegion   string
	DynamoTable    string

	// SQLDriverName is a database/sql driver name: sqlite, pgx, postgres or mysql.
	SQLDriverName string
	SQLDSN        string
	SQLTable      string
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverFile
	}
	if c.Prefix == "" {
		c.Prefix = defaultTapePrefix
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	if c.DynamoTable == "" {
		c.DynamoTable = defaultDynamoTable
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = defaultDynamoRegion
	}
	if c.SQLTable == "" {
		c.SQLTable = defaultSQLTable
	}
	return c
}
