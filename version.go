package eliza

// Release is the current version of the eliza runtime. This is set on release.
var Release = "v0.1.0"

// Version returns the version of the eliza runtime.
func Version() string {
	return Release
}
