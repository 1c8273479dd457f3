// Package config loads and validates engine configuration (scoring mode,
// thresholds, weights, comparison bins, the Fellegi-Sunter m/u table) plus
// the ambient logging/REST API/storage surface, using Viper.
//
// Loads and validates configuration from YAML files with support for
// multiple config locations and default values.
package config
