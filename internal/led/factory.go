package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// boardLEDs maps a device tree model fragment to its role -> LED names.
var boardLEDs = []struct {
	model string
	leds  map[string]string
}{
	{"NanoPC-T6", map[string]string{RoleTally: "usr_led", RoleFlash: "sys_led"}},
	{"Orange Pi", map[string]string{RoleTally: "green_led", RoleFlash: "blue_led"}},
	{"Raspberry Pi", map[string]string{RoleTally: "ACT"}},
}

// New returns a sysfs controller for a recognised board and a no-op
// controller otherwise.
func New(logger *slog.Logger) Controller {
	return newForModel(detectBoard(), sysfsLEDPath, logger)
}

func newForModel(model, root string, logger *slog.Logger) Controller {
	for _, b := range boardLEDs {
		if strings.Contains(model, b.model) {
			logger.Info("Using sysfs LED controller", "board_model", model)
			return newSysfs(root, b.leds)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	// Device tree strings are NUL terminated.
	return strings.TrimRight(string(data), "\x00")
}
