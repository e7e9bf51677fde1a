// Command historyctl inspects and trims the collage run history database.
//
// Usage:
//
//	historyctl <command> [flags]
//
// Commands:
//
//	status  Print the number of recorded runs per status.
//
//	prune   Delete runs older than --keep-days (default 30). Asks for
//	        confirmation on a terminal; pass --yes when scripting.
//
// Environment:
//
//	DATABASE_DIR - Directory containing history.db (required)
package main
