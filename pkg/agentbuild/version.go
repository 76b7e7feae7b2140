package agentbuild

// Version is the version of this agentbuild binary. It's set at build time using ldflags.
var Version = "unknown"
