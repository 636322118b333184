// version.go
package version

// ModuleName holds the name of this module, used in log correlation.
var ModuleName = "dynamic-concurrency"

// Version holds the current version of this module.
var Version = "0.1.0"

// GetModuleName returns the name of this module.
func GetModuleName() string {
	return ModuleName
}

// GetVersion returns the current version of this module.
func GetVersion() string {
	return Version
}
