package aging

import "math"

// Bracket is one maturity bracket: an inclusive range of maturity days
// mapped to a cluster label. Keeping the table data-driven fixes the
// boundary semantics in one place.
type Bracket struct {
	Lower   int
	Upper   int
	Cluster Cluster
}

// defaultBrackets is the fixed bracket table. Maturity is positive before
// the due date and negative once overdue. Day 0 (due today) is not yet
// overdue and stays Not mature; 1 through 30 days overdue land in 1-30,
// with the same inclusive discipline at 60.
func defaultBrackets() []Bracket {
	return []Bracket{
		{Lower: 0, Upper: math.MaxInt32, Cluster: ClusterNotMature},
		{Lower: -30, Upper: -1, Cluster: Cluster1To30},
		{Lower: -60, Upper: -31, Cluster: Cluster31To60},
		{Lower: math.MinInt32, Upper: -61, Cluster: ClusterOver60},
	}
}

// computeMaturity sets MaturityDays and Cluster on every classified
// invoice / credit record with a due date. Records without a due date keep
// an absent maturity and the Unassigned cluster.
func computeMaturity(records []*TransactionRecord, opts *Options) {
	for _, rec := range records {
		if rec.IsCumulative {
			continue
		}
		if rec.Classification != ClassificationInvoice && rec.Classification != ClassificationCredit {
			continue
		}
		if rec.DueDate == nil {
			continue
		}

		days := rec.DueDate.DaysSince(opts.ReportingDate)
		rec.MaturityDays = &days
		rec.Cluster = assignCluster(opts.Brackets, days)
	}
}

// assignCluster returns the cluster of the first bracket containing the
// maturity value.
func assignCluster(brackets []Bracket, maturityDays int) Cluster {
	for _, b := range brackets {
		if maturityDays >= b.Lower && maturityDays <= b.Upper {
			return b.Cluster
		}
	}
	return ClusterUnassigned
}
