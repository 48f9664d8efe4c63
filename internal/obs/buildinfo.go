package obs

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "nutriadmin",
			Name:      "build_info",
			Help:      "Constant 1 labelled with the running build.",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// InitBuildInfo publishes nutriadmin_build_info and returns the commit it
// reported. When commit is empty or "dev" the VCS revision stamped by the Go
// toolchain is used instead, if there is one.
func InitBuildInfo(version, commit string) string {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	commit = resolveCommit(commit, debug.ReadBuildInfo)
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
	return commit
}

func resolveCommit(commit string, read func() (*debug.BuildInfo, bool)) string {
	if commit != "" && commit != "dev" {
		return commit
	}
	if info, ok := read(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	if commit == "" {
		return "unknown"
	}
	return commit
}
