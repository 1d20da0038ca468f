// Package config loads and validates the notifier's YAML configuration.
//
// Resolution order is defaults, then file, then environment overrides with
// the SHARPFLOW_ prefix, so a container deployment can run without a config
// file at all. ${VAR} references inside the file are expanded from the
// environment before parsing, which keeps the signing secret out of the file
// itself.
package config
