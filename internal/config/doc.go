// Package config loads commitview settings from a YAML file, environment
// variables and command line flags, in increasing order of precedence.
package config
