package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/turtacn/mcbuilder/internal/application/assembly"
	"github.com/turtacn/mcbuilder/internal/config"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode report")
	}
	return nil
}

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeClusterRows(w io.Writer, rows []assembly.ClusterRow) {
	table := newTable(w, "Label", "Representative", "Length", "Structural", "Members")
	for _, r := range rows {
		table.Append([]string{
			r.Label,
			r.Representative,
			strconv.Itoa(r.Length),
			strconv.Itoa(r.Structural),
			strings.Join(r.Members, ", "),
		})
	}
	table.Render()
}

func printClusterTable(w io.Writer, format string, t *assembly.ClusterTable) error {
	if format == config.FormatJSON {
		return printJSON(w, t)
	}
	fmt.Fprintf(w, "Inputs: %d FASTA file(s), %d PDB file(s), %d sequence and %d structural chain(s)\n",
		t.Inputs.FASTAFiles, t.Inputs.PDBFiles, t.Inputs.SequenceChains, t.Inputs.StructuralChains)
	fmt.Fprintf(w, "Clusters: %d (%d comparisons)\n\n", len(t.Clusters), t.Comparisons)
	writeClusterRows(w, t.Clusters)
	return nil
}

func printBuildResult(w io.Writer, format string, res *assembly.BuildResult) error {
	if format == config.FormatJSON {
		return printJSON(w, res)
	}

	fmt.Fprintf(w, "Run: %s\n", res.RunID)
	fmt.Fprintf(w, "Inputs: %d FASTA file(s), %d PDB file(s), %d sequence and %d structural chain(s)\n",
		res.Inputs.FASTAFiles, res.Inputs.PDBFiles, res.Inputs.SequenceChains, res.Inputs.StructuralChains)
	fmt.Fprintf(w, "Templates: %d\n\n", res.Templates)
	writeClusterRows(w, res.Clusters)

	m := res.Model
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Model: %s\n", m.Path)
	fmt.Fprintf(w, "Composition: %s", m.Composition)
	if res.Stoichiometry != "" {
		status := color.GreenString("satisfied")
		if !m.Satisfied {
			status = color.YellowString("not satisfied")
		}
		fmt.Fprintf(w, " (target %s, %s)", res.Stoichiometry, status)
	}
	fmt.Fprintf(w, "\nRMSD sum: %.3f Å\n\n", m.RMSDSum)

	table := newTable(w, "Chain", "Cluster", "Source", "Template", "RMSD", "Residues")
	for _, c := range m.Chains {
		tpl := c.Template
		if tpl == "" {
			tpl = "(seed)"
		}
		table.Append([]string{
			c.ChainID,
			c.Cluster,
			c.Source,
			tpl,
			strconv.FormatFloat(c.RMSD, 'f', 3, 64),
			strconv.Itoa(c.Residues),
		})
	}
	table.Render()

	st := res.Stats
	fmt.Fprintf(w, "\nSearch: %s, %d state(s) explored, %d terminal, %d attempt(s), %d superposition(s) in %s\n",
		st.Mode, st.StatesExplored, st.TerminalStates, st.Attempts, st.Superpositions, st.Elapsed.Round(time.Microsecond))
	if len(st.Rejections) > 0 {
		reasons := make([]string, 0, len(st.Rejections))
		for reason, n := range st.Rejections {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w, "Rejected: %s\n", strings.Join(reasons, " "))
	}
	if m.URL != "" {
		fmt.Fprintf(w, "Uploaded: %s\n", m.URL)
	} else if m.ObjectKey != "" {
		fmt.Fprintf(w, "Uploaded: %s\n", m.ObjectKey)
	}
	return nil
}
