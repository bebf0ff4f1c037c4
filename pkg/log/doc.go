// Package log captures a machine-readable trace of coordinator activity.
//
// It is separate from operational logging (slog). Events are recorded at
// three layers:
//   - Transport: raw wpa_supplicant control lines (FrameEvent)
//   - Driver: parsed adapter events (DriverEventData)
//   - Service: state machine transitions, connectivity changes and
//     application requests (StateChangeEvent, RequestEvent)
//
// Errors at any layer have their own payload.
//
// # Basic Usage
//
//	// Console during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Binary file for later analysis with p2p-log
//	fl, _ := log.NewFileLogger("/var/log/p2pd/p2pd.plog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # File Format
//
// Files are a plain concatenation of CBOR-encoded events (.plog).
package log
