package daemon

import (
	"log/slog"

	"github.com/jmylchreest/poptrans/internal/config"
)

// SetupHint describes why the daemon cannot translate yet. It is empty when
// no setup is needed.
func SetupHint(cfg *config.Config, shortcutFailed bool) string {
	if !cfg.NeedsSetup(shortcutFailed) {
		return ""
	}
	switch {
	case cfg.APIKey == "" && shortcutFailed:
		return "No API key is set and the shortcut " + cfg.Shortcut + " could not be registered."
	case cfg.APIKey == "":
		return "No API key is set."
	default:
		return "The shortcut " + cfg.Shortcut + " could not be registered."
	}
}

// CheckFirstRun logs and notifies the setup hint on first run. It reports
// whether setup is needed.
func CheckFirstRun(cfg *config.Config, shortcutFailed bool, notifier *InternalNotifier, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	hint := SetupHint(cfg, shortcutFailed)
	if hint == "" {
		return false
	}

	logger.Warn("poptrans is not set up, run `poptrans settings`", "reason", hint)
	if notifier != nil {
		notifier.NotifySetupNeeded(hint)
	}
	return true
}
