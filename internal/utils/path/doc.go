// Package pathutils resolves user supplied filesystem paths, expanding the
// home directory shortcut and anchoring relative paths at a base directory.
package pathutils
