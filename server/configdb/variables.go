package configdb

import (
	"fmt"
	"strconv"

	"github.com/vigiacam/vigia/pkg/colorclass"
)

// VariableKey is a global configuration variable that can be set on the
// system.
type VariableKey string

const (
	VarLinePosition     VariableKey = "LinePosition"     // counting line, fraction of frame height
	VarPixelsPerMeter   VariableKey = "PixelsPerMeter"   // scene scale for speed estimation
	VarWatchColor       VariableKey = "WatchColor"       // color match alert target, "" disables
	VarTelegramBotToken VariableKey = "TelegramBotToken" // Telegram notification credentials
	VarTelegramChatID   VariableKey = "TelegramChatID"
)

// AllVariables lists the keys that the API will accept.
var AllVariables = []VariableKey{
	VarLinePosition,
	VarPixelsPerMeter,
	VarWatchColor,
	VarTelegramBotToken,
	VarTelegramChatID,
}

// ValidateVariable rejects values that would break the monitor when applied.
func ValidateVariable(key VariableKey, value string) error {
	switch key {
	case VarLinePosition:
		pos, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("Invalid line position '%v': %w", value, err)
		}
		if pos <= 0 || pos >= 1 {
			return fmt.Errorf("Line position must be inside (0, 1), got %v", pos)
		}
	case VarPixelsPerMeter:
		ppm, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("Invalid pixels per meter '%v': %w", value, err)
		}
		if ppm < 0 {
			return fmt.Errorf("Pixels per meter may not be negative, got %v", ppm)
		}
	case VarWatchColor:
		if value != "" && !colorclass.Color(value).Valid() {
			return fmt.Errorf("Unknown color '%v'", value)
		}
	case VarTelegramBotToken, VarTelegramChatID:
		// free-form
	default:
		return fmt.Errorf("Unknown variable '%v'", key)
	}
	return nil
}

// VariableSetNeedsRestart reports whether the system must be restarted for a
// change to this variable to take effect. Monitor tuning variables are applied
// live; the Telegram sender only reads its credentials at startup.
func VariableSetNeedsRestart(v VariableKey) bool {
	return v == VarTelegramBotToken || v == VarTelegramChatID
}
