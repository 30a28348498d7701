// Package monitor implements the real-time TUI dashboard for a telemetry
// stream.
//
// The dashboard shows CPU, RAM, every GPU, disk and network for the latest
// snapshot, with braille sparklines drawn from the rolling history and a
// banner for active threshold alerts.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Model: holds the latest snapshot, the history window, the connection
//     state and layout
//   - Update: processes keystrokes, store notifications, state changes and
//     ticks
//   - View: renders the current state to a string
//
// # Message Flow
//
// The model never polls the network. The stream manager writes into the
// store, and the model is told about it:
//
//  1. store.Subscribe delivers a signal per snapshot; frameMsg re-reads
//     Current and History
//  2. Manager.OnConnectionChange is wired to Model.ConnectionChanged, which
//     queues a connMsg
//  3. tickMsg fires at the refresh interval to age the header and animate
//     the connecting indicator
//
// Alerts are only shown while connected. Stale data never raises a banner.
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	e           - Export the history window as CSV
//	?           - Toggle help overlay
//	Esc         - Close help
package monitor
