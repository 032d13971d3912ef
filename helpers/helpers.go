package helpers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/hako/durafmt"
)

// OutputPath derives the emitted prompt's path from a workflow path:
// the extension is replaced by suffix, in the same directory.
// "flows/flux.json" with suffix ".api.json" becomes "flows/flux.api.json".
func OutputPath(workflowPath, suffix string) string {
	if suffix == "" {
		suffix = ".api.json"
	}
	base := strings.TrimSuffix(filepath.Base(workflowPath), filepath.Ext(workflowPath))
	return filepath.Join(filepath.Dir(workflowPath), base+suffix)
}

// Elapsed renders the time since start in human terms.
func Elapsed(start time.Time) string {
	return durafmt.Parse(time.Since(start).Round(time.Second)).String()
}
