package backend

import (
	"fmt"

	"pagos/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		LocalDBPath: appConfig.LocalDBPath,
		SeedDir:     appConfig.SeedDir,

		GoogleSpreadsheetID:     appConfig.GoogleSpreadsheetID,
		GoogleSheetName:         appConfig.GoogleSheetName,
		GoogleClosingsSheetName: appConfig.GoogleClosingsSheetName,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case LocalBackend:
		if c.LocalDBPath == "" {
			return fmt.Errorf("local database path is required for local backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), LocalBackend.String(), SQLiteBackend.String()}
}
