// Package config loads and validates the daemon configuration.
//
// A configuration file is YAML. It is checked against the JSON schema
// generated from Config, decoded on top of Default(), and finally validated
// field by field.
package config
