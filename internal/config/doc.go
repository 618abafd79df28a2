// SPDX-License-Identifier: MPL-2.0

// Package config provides read-through access to user settings.
//
// Settings live in settings.json inside the settings directory ($BND_SETTINGS_DIR,
// else ~/.bnd). The file is validated against an embedded CUE schema
// (settings_schema.cue) and loaded into Viper. Key/value settings sit under the
// "map" object; their names usually contain dots, so Viper is configured with
// "::" as key delimiter. Any map entry can be overridden with an environment
// variable BND_GLOBAL_<KEY>, where KEY is the upper-cased name with
// non-alphanumerics replaced by underscores.
package config
