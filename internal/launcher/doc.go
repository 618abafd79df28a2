// SPDX-License-Identifier: MPL-2.0

// Package launcher runs workspace projects and packages them as executable
// JARs.
//
// A Packager writes a self-contained JAR in one of two layouts. The embedded
// layout copies every runpath and run bundle file under jar/ and starts the
// embedded launcher class. The content-addressed layout (-package: jpm)
// references files by their SHA-1 and leaves fetching them to the installer.
//
// A ProjectLauncher writes the launch properties of a project and starts
// the launcher in a child JVM.
package launcher
