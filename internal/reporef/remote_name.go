package reporef

import "strings"

const (
	remoteNamePrefixConstant    = "remote-"
	remoteNameSeparatorConstant = "-branch-"
	escapedDashConstant         = "__"
	escapeMarkerConstant        = '_'
	lowercaseHexDigitsConstant  = "0123456789abcdef"
)

// RemoteName derives the remote identifier for a repository name and branch.
//
// The result has the form remote-<name>-branch-<branch>. Letters and digits are
// kept, a dash becomes "__" and any other byte becomes "_" followed by two
// lowercase hex digits. Encoded components never contain a dash, so distinct
// inputs always produce distinct names, and the output only uses characters
// valid in a git remote name.
func RemoteName(name string, branch string) string {
	var builder strings.Builder
	builder.Grow(len(remoteNamePrefixConstant) + len(remoteNameSeparatorConstant) + 2*(len(name)+len(branch)))
	builder.WriteString(remoteNamePrefixConstant)
	writeEncodedComponent(&builder, name)
	builder.WriteString(remoteNameSeparatorConstant)
	writeEncodedComponent(&builder, branch)
	return builder.String()
}

func writeEncodedComponent(builder *strings.Builder, component string) {
	for index := 0; index < len(component); index++ {
		character := component[index]
		switch {
		case isAlphanumeric(character):
			builder.WriteByte(character)
		case character == '-':
			builder.WriteString(escapedDashConstant)
		default:
			builder.WriteByte(escapeMarkerConstant)
			builder.WriteByte(lowercaseHexDigitsConstant[character>>4])
			builder.WriteByte(lowercaseHexDigitsConstant[character&0x0f])
		}
	}
}

func isAlphanumeric(character byte) bool {
	return (character >= 'a' && character <= 'z') ||
		(character >= 'A' && character <= 'Z') ||
		(character >= '0' && character <= '9')
}
