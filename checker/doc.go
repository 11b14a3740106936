// Package checker scans directories of plugin files and reports which ones
// misuse the light, medium, or update plugin subtypes for a game.
//
// A Scanner checks each plugin concurrently, records its CRC32, and raises
// warnings when a plugin claims a subtype it cannot satisfy or could be
// converted to a light plugin. A Watcher repeats the scan as files change.
package checker
