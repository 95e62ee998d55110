package types

// Version is the canonical project version.
// The CLI, the module format and the runtime mapper share this version;
// bumping the module format version in modbin requires bumping this too.
const Version = "0.3.0"
