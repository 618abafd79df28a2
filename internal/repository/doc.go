// SPDX-License-Identifier: MPL-2.0

// Package repository defines the plugin contract for artifact repositories
// and a directory-backed implementation.
package repository
