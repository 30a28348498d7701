package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "◉" // Operation completed
	SymbolFail     = "✕" // Operation failed
	SymbolPending  = "◇" // Not yet started
	SymbolProgress = "◆" // In progress
	SymbolComplete = "●" // Done (alternative to success)
	SymbolSkipped  = "⊖" // Nothing to do
	SymbolWarning  = "⚠"
)
