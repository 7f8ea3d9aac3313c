package types

// Version is the canonical project version.
// The CLI, the capture contract and the notification contract share this version.
const Version = "1.0.0"
