package assembly

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/mcbuilder/internal/domain/cluster"
	"github.com/turtacn/mcbuilder/pkg/errors"
)

var stoichiometryTerm = regexp.MustCompile(`([A-Z]+)([0-9]+)`)

// Stoichiometry maps a cluster label to the number of copies wanted in the
// complex.
type Stoichiometry map[string]int

// ParseStoichiometry parses notation such as "A1B4C6" (case-insensitive).
// The whole input must consist of label/count terms; counts are at least 1
// and a label may appear once.
func ParseStoichiometry(s string) (Stoichiometry, error) {
	in := strings.ToUpper(strings.TrimSpace(s))
	if in == "" {
		return nil, errors.New(errors.ErrCodeStoichiometryInvalid, "empty stoichiometry")
	}
	out := make(Stoichiometry)
	pos := 0
	for _, m := range stoichiometryTerm.FindAllStringSubmatchIndex(in, -1) {
		if m[0] != pos {
			return nil, errors.New(errors.ErrCodeStoichiometryInvalid, "unexpected text").
				WithDetail(in[pos:m[0]])
		}
		label := in[m[2]:m[3]]
		n, err := strconv.Atoi(in[m[4]:m[5]])
		if err != nil || n < 1 {
			return nil, errors.New(errors.ErrCodeStoichiometryInvalid, "copy count must be a positive integer").
				WithDetail(in[m[0]:m[1]])
		}
		if _, dup := out[label]; dup {
			return nil, errors.New(errors.ErrCodeStoichiometryInvalid, "label given twice").WithDetail(label)
		}
		out[label] = n
		pos = m[1]
	}
	if pos != len(in) {
		return nil, errors.New(errors.ErrCodeStoichiometryInvalid, "unexpected text").WithDetail(in[pos:])
	}
	return out, nil
}

// Total returns the number of chains requested.
func (s Stoichiometry) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// String renders the notation with labels in assignment order.
func (s Stoichiometry) String() string {
	labels := make([]string, 0, len(s))
	for l := range s {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) < len(labels[j])
		}
		return labels[i] < labels[j]
	})
	var sb strings.Builder
	for _, l := range labels {
		sb.WriteString(l)
		sb.WriteString(strconv.Itoa(s[l]))
	}
	return sb.String()
}

// Targets resolves the labels against clusters and returns the wanted copy
// count per cluster id.  Clusters not named get zero copies.
func (s Stoichiometry) Targets(clusters *cluster.Result) ([]int, error) {
	out := make([]int, len(clusters.Groups))
	for label, n := range s {
		g, ok := clusters.ByLabel(label)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownClusterLabel, "no cluster with this label").
				WithDetail("label=" + label)
		}
		out[g.ID] = n
	}
	return out, nil
}
