// Package output renders responses and failures for the terminal.
//
// Rendering modes, chosen by the request descriptor:
//   - default: status line, headers, body, optional timing block
//   - silent: body only (nothing when the body went to a file)
//   - head-only: status line and headers
//   - output file: status line, headers and the destination path
//
// A --jsonpath expression replaces all of these with the single value
// it extracts from a JSON body. Colors come from fatih/color, which
// disables itself on non-terminals and when NO_COLOR is set.
package output
