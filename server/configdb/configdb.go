// Package configdb stores runtime configuration (counting line, scale,
// alerting, notification credentials) in sqlite, as a key/value variable
// table with typed accessors.
package configdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

type ConfigDB struct {
	Log logs.Log
	DB  *gorm.DB
}

func NewConfigDB(logger logs.Log, dbFilename string) (*ConfigDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	configDB, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", dbFilename, err)
	}
	return &ConfigDB{
		Log: logger,
		DB:  configDB,
	}, nil
}

// GetVariable returns the value of a variable, or "" when it has never been
// set.
func (c *ConfigDB) GetVariable(key VariableKey) (string, error) {
	v := Variable{}
	if err := c.DB.Where("key = ?", string(key)).Find(&v).Error; err != nil {
		return "", err
	}
	return v.Value, nil
}

// SetVariable writes a variable, validating it first.
func (c *ConfigDB) SetVariable(key VariableKey, value string) error {
	if err := ValidateVariable(key, value); err != nil {
		return err
	}
	db, err := c.DB.DB()
	if err != nil {
		return err
	}
	_, err = db.Exec("INSERT INTO variable (key, value) VALUES ($1, $2) ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value", string(key), value)
	if err != nil {
		return err
	}
	c.Log.Infof("Set config variable %v: %v", key, value)
	return nil
}

// GetFloat returns a float variable, or def when unset.
func (c *ConfigDB) GetFloat(key VariableKey, def float64) (float64, error) {
	s, err := c.GetVariable(key)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Settings is the monitor configuration assembled from the variable table.
type Settings struct {
	LinePosition     float64 `json:"linePosition"`
	PixelsPerMeter   float64 `json:"pixelsPerMeter"`
	WatchColor       string  `json:"watchColor"`
	TelegramBotToken string  `json:"-"`
	TelegramChatID   string  `json:"-"`
}

// LoadSettings reads all monitor settings, applying defaults for variables
// that were never set.
func (c *ConfigDB) LoadSettings() (*Settings, error) {
	s := &Settings{}
	var err error
	if s.LinePosition, err = c.GetFloat(VarLinePosition, 0.5); err != nil {
		return nil, err
	}
	if s.PixelsPerMeter, err = c.GetFloat(VarPixelsPerMeter, 0); err != nil {
		return nil, err
	}
	if s.WatchColor, err = c.GetVariable(VarWatchColor); err != nil {
		return nil, err
	}
	if s.TelegramBotToken, err = c.GetVariable(VarTelegramBotToken); err != nil {
		return nil, err
	}
	if s.TelegramChatID, err = c.GetVariable(VarTelegramChatID); err != nil {
		return nil, err
	}
	return s, nil
}
