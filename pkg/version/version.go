package version

// Version of cfganalyzer, set at build time with
// -ldflags "-X github.com/observatorium/cfganalyzer/pkg/version.Version=...".
var Version = "v0.1.0-dev"
