// Package ui renders merge progress for people watching a terminal.
//
// ActionEventFormatter turns queue drain events into one-line messages and
// ConsoleActionEventLogger writes them through a console zap logger, while
// structured telemetry keeps flowing through the regular loggers.
package ui
