// Package ui provides the styled output pieces used by the non-dashboard
// commands.
//
// # Components
//
//	Spinner           - status line for operations that take a while
//	RenderSimpleTable - fixed-width table built on bubbles/table
//	Symbols, colors   - shared glyphs and the Lip Gloss palette
//
// Use DisableColors() to switch to monochrome output (for --no-color).
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Collecting samples")
//	s.SetOutput(os.Stdout, isTerminal)
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail() or s.Skip()
package ui
