package aging

import "math"

// clusterOrder fixes the report row order for the four maturity brackets.
var clusterOrder = []Cluster{ClusterNotMature, Cluster1To30, Cluster31To60, ClusterOver60}

// aggregate folds the final record sequence into cluster buckets and
// run-wide totals. It mutates nothing: records are read-only here.
//
// Every classification gets all four fixed buckets (possibly empty) in
// cluster order, plus an Unassigned bucket when a classified record lacks a
// due date. That keeps the bucket layout deterministic and makes the bucket
// amounts of a classification sum exactly to its record total.
func aggregate(records []*TransactionRecord, dropped int) (buckets []ClusterBucket, summary Summary) {
	summary.DroppedEmptyRows = dropped

	type key struct {
		classification Classification
		cluster        Cluster
	}
	byKey := make(map[key]*ClusterBucket)

	bucketFor := func(c Classification, cl Cluster) *ClusterBucket {
		k := key{c, cl}
		if b, ok := byKey[k]; ok {
			return b
		}
		b := &ClusterBucket{Classification: c, Cluster: cl}
		byKey[k] = b
		return b
	}

	// Fixed buckets exist even when empty.
	for _, c := range []Classification{ClassificationInvoice, ClassificationCredit} {
		for _, cl := range clusterOrder {
			bucketFor(c, cl)
		}
	}

	for _, rec := range records {
		if rec.IsCumulative {
			summary.CumulativeCount++
			continue
		}

		switch rec.Classification {
		case ClassificationInvoice:
			summary.InvoiceCount++
		case ClassificationCredit:
			summary.CreditCount++
		default:
			summary.UnclassifiedCount++
			continue
		}

		b := bucketFor(rec.Classification, rec.Cluster)
		b.Count++
		if rec.Amount != nil {
			b.Amount = roundMinorUnit(b.Amount + *rec.Amount)
		}
		b.RowIndices = append(b.RowIndices, rec.RowIndex)
	}

	for _, c := range []Classification{ClassificationInvoice, ClassificationCredit} {
		order := clusterOrder
		if b := byKey[key{c, ClusterUnassigned}]; b != nil {
			order = append(append([]Cluster{}, clusterOrder...), ClusterUnassigned)
		}

		var total float64
		for _, cl := range order {
			total = roundMinorUnit(total + byKey[key{c, cl}].Amount)
		}

		for _, cl := range order {
			b := byKey[key{c, cl}]
			if total != 0 {
				b.Percentage = b.Amount / total
			}
			buckets = append(buckets, *b)
		}

		switch c {
		case ClassificationInvoice:
			summary.TotalInvoiced = total
		case ClassificationCredit:
			summary.TotalCredited = total
		}
	}

	summary.NetOutstanding = roundMinorUnit(summary.TotalInvoiced + summary.TotalCredited)
	return buckets, summary
}

// roundMinorUnit rounds to two decimals so repeated folding never drifts
// beyond the currency's minor unit.
func roundMinorUnit(v float64) float64 {
	return math.Round(v*100) / 100
}
