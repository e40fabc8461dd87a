package types

// Version is the canonical project version.
// The CLI, the block layout and the scene blob codec share this version
// per the lockstep versioning policy.
const Version = "0.3.0"
