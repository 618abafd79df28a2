// SPDX-License-Identifier: MPL-2.0

// Package launch defines the launch properties handed to the launcher binary.
//
// The launcher reads a properties file whose absolute path is passed in the
// launcher.properties system property. Recognized keys live under "launch.";
// every other key is a framework run property.
package launch
