// Package logger wraps zap for the action:
//   - a global sugared logger writing a compact console format,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag and the log-level input,
//   - leveled shortcuts (Infof, ErrorKV, etc.) that read the logger from context.
//
// Stages receive a context and log through it, so fields such as the run id
// and the stage name follow the message without being passed around.
package logger
