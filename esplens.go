// ABOUTME: Main esplens package providing version information and package documentation
// ABOUTME: This is the root package for the plugin classification tool

// Package esplens parses Bethesda plugin files and classifies them as light,
// medium, or update plugins under each game's rules.
//
// The plugin package is the library entry point. The record package decodes
// the plugin format, the game package holds the per-game rule table, and the
// checker package scans whole directories.
package esplens

// Version is the semantic version of the esplens tool
const Version = "0.1.0-dev"
