// Package ui renders the terminal output of an authorization run with lipgloss.
//
// A [Palette] is bound to the writer it renders for, so styles degrade to plain text when output is piped.
package ui
