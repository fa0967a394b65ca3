package console

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/melih/dockerbar/internal/core/domain"
)

const shortIDLen = 12

// RenderTable writes containers as a table, one row per container in the
// order given.
func RenderTable(w io.Writer, containers []domain.Container) {
	st := newStyles(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "ID", "State", "Status", "Actions"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, c := range containers {
		table.Append([]string{
			c.Name,
			shortID(c.ID),
			c.State,
			st.status(c.Status),
			actionNames(domain.ActionsFor(c.Status)),
		})
	}
	table.Render()
}

func actionNames(actions []domain.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return strings.Join(names, ",")
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	if id == "" {
		return "-"
	}
	return id
}
