// Package config defines the action settings and helpers to load them from an
// optional YAML file, overlay CI action inputs and validate the result.
package config
