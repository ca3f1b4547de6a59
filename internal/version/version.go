package version

// Version is set during the build via ldflags.
var Version = "(dev) v0.0.0"
