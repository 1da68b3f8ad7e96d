// Package table renders pterm tables without the default cell padding.
package table

import (
	"github.com/pterm/pterm"
)

// PrintTableNoPad renders data as a table. When hasHeader is set the first
// row is styled as a header.
func PrintTableNoPad(data pterm.TableData, hasHeader bool) {
	_ = pterm.DefaultTable.
		WithHasHeader(hasHeader).
		WithLeftAlignment().
		WithData(data).
		Render()
}
