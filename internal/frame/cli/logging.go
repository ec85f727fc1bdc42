package cli

import (
	"os"

	"github.com/charmbracelet/log"
)

// setupLogging configures the default logger for terminal output. The
// level comes from FRAME_LOG (debug/info/warn/error); unset or
// unparseable values fall back to warn so diagnostics stay quiet unless
// asked for.
func setupLogging() {
	log.SetReportTimestamp(false)
	if parsed, err := log.ParseLevel(os.Getenv("FRAME_LOG")); err == nil {
		log.SetLevel(parsed)
		return
	}
	log.SetLevel(log.WarnLevel)
}
