package analysis

import "github.com/KaramelBytes/echoloom-cli/internal/dataset"

// Column layouts of the result tables.
var (
	StatsColumns = []string{
		"outcome_measure", "Source", "SS", "DF", "MS", "F", "p-unc", "np2",
		"levene pval", "shapiro pval", "shapiro groups",
	}
	// PairwiseColumns keeps identifiers first and notes last.
	PairwiseColumns = []string{
		"outcome_measure", "factors", "comparison",
		"T", "dof", "alternative", "CI95% low", "CI95% high", "cohen-d", "ttest pval",
		"U-val", "RBC", "CLES", "mwu pval",
		"notes",
	}
)

// StatsTable renders the ANOVA rows of every outcome.
func (res *Result) StatsTable() *dataset.Table {
	t := dataset.NewTable(StatsColumns...)
	for _, r := range res.Stats {
		t.Append(dataset.Row{
			"outcome_measure": r.Outcome, "Source": r.Source,
			"SS": r.SS, "DF": r.DF, "MS": r.MS, "F": r.F, "p-unc": r.P, "np2": r.NP2,
			"levene pval": r.Levene, "shapiro pval": r.Normality,
			"shapiro groups": r.NormalityGroups,
		})
	}
	return t
}

// PairwiseTable renders the pairwise comparisons. Untested pairs carry
// only identifiers and the note.
func (res *Result) PairwiseTable() *dataset.Table {
	t := dataset.NewTable(PairwiseColumns...)
	for _, r := range res.Pairwise {
		row := dataset.Row{
			"outcome_measure": r.Outcome, "factors": r.Factors, "comparison": r.Comparison,
			"notes": r.Notes,
		}
		if r.Tested {
			row["T"], row["dof"], row["alternative"] = r.T, r.DOF, Alternative
			row["CI95% low"], row["CI95% high"] = r.CILow, r.CIHigh
			row["cohen-d"], row["ttest pval"] = r.CohenD, r.TTestP
			row["U-val"], row["RBC"], row["CLES"], row["mwu pval"] = r.U, r.RBC, r.CLES, r.MWUP
		}
		t.Append(row)
	}
	return t
}

// SummaryTable renders group summaries: outcome, one column per factor,
// then mean, len, sem and the chart axis label.
func (res *Result) SummaryTable() *dataset.Table {
	cols := append([]string{"outcome_measure"}, res.Factors...)
	cols = append(cols, "mean", "len", "sem", "axis")
	t := dataset.NewTable(cols...)
	for _, s := range res.Summaries {
		row := dataset.Row{"outcome_measure": s.Outcome, "mean": s.Mean, "len": s.N, "sem": s.SEM, "axis": s.Axis}
		for i, f := range res.Factors {
			row[f] = s.Levels[i]
		}
		t.Append(row)
	}
	return t
}
