package configdb

import (
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func createTestDB(t *testing.T) *ConfigDB {
	db, err := NewConfigDB(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "config.sqlite"))
	require.NoError(t, err)
	return db
}

func TestVariables(t *testing.T) {
	db := createTestDB(t)

	v, err := db.GetVariable(VarWatchColor)
	require.NoError(t, err)
	require.Equal(t, "", v)

	require.NoError(t, db.SetVariable(VarWatchColor, "azul"))
	v, err = db.GetVariable(VarWatchColor)
	require.NoError(t, err)
	require.Equal(t, "azul", v)

	// Upsert
	require.NoError(t, db.SetVariable(VarWatchColor, "preto"))
	v, err = db.GetVariable(VarWatchColor)
	require.NoError(t, err)
	require.Equal(t, "preto", v)
}

func TestValidation(t *testing.T) {
	db := createTestDB(t)

	require.Error(t, db.SetVariable(VarLinePosition, "1.5"))
	require.Error(t, db.SetVariable(VarLinePosition, "banana"))
	require.NoError(t, db.SetVariable(VarLinePosition, "0.4"))

	require.Error(t, db.SetVariable(VarPixelsPerMeter, "-3"))
	require.NoError(t, db.SetVariable(VarPixelsPerMeter, "25"))

	require.Error(t, db.SetVariable(VarWatchColor, "turquesa"))
	require.NoError(t, db.SetVariable(VarWatchColor, ""))

	require.Error(t, db.SetVariable(VariableKey("Nope"), "x"))
}

func TestLoadSettings(t *testing.T) {
	db := createTestDB(t)

	// Defaults
	s, err := db.LoadSettings()
	require.NoError(t, err)
	require.Equal(t, 0.5, s.LinePosition)
	require.Equal(t, 0.0, s.PixelsPerMeter)
	require.Equal(t, "", s.WatchColor)

	require.NoError(t, db.SetVariable(VarLinePosition, "0.6"))
	require.NoError(t, db.SetVariable(VarPixelsPerMeter, "25"))
	require.NoError(t, db.SetVariable(VarWatchColor, "azul"))
	require.NoError(t, db.SetVariable(VarTelegramBotToken, "tok"))
	require.NoError(t, db.SetVariable(VarTelegramChatID, "123"))

	s, err = db.LoadSettings()
	require.NoError(t, err)
	require.Equal(t, 0.6, s.LinePosition)
	require.Equal(t, 25.0, s.PixelsPerMeter)
	require.Equal(t, "azul", s.WatchColor)
	require.Equal(t, "tok", s.TelegramBotToken)
	require.Equal(t, "123", s.TelegramChatID)
}
