// SPDX-License-Identifier: MPL-2.0

// Package dag orders projects so that every project follows the projects it
// depends on. Cycles are reported with the path that closes them.
package dag
