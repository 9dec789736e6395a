// Package logging provides file-based logging with size-based rotation for
// the memory engine and tool orchestrator. Setup always writes structured
// slog JSON to a log file (DefaultConfig uses ~/.agentcore/logs/agentcored.log)
// and, when WriteToStderr is set as it is in DefaultConfig, to stderr too.
// MCP mode writes to the file only.
package logging
