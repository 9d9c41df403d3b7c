package version

// Version is overridden at build time with -ldflags "-X greensense/internal/shared/version.Version=...".
var Version = "dev"
