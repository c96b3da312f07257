package aging

import (
	"testing"

	"cloud.google.com/go/civil"
)

func TestAssignClusterBoundaries(t *testing.T) {
	brackets := defaultBrackets()

	tests := []struct {
		maturityDays int
		want         Cluster
	}{
		{15, ClusterNotMature},
		{1, ClusterNotMature},
		{0, ClusterNotMature},
		{-1, Cluster1To30},
		{-30, Cluster1To30},
		{-31, Cluster31To60},
		{-45, Cluster31To60},
		{-60, Cluster31To60},
		{-61, ClusterOver60},
		{-365, ClusterOver60},
	}

	for _, tt := range tests {
		if got := assignCluster(brackets, tt.maturityDays); got != tt.want {
			t.Errorf("assignCluster(%d) = %s, want %s", tt.maturityDays, got, tt.want)
		}
	}
}

func TestComputeMaturity(t *testing.T) {
	reporting := civil.Date{Year: 2025, Month: 6, Day: 10}
	due := civil.Date{Year: 2025, Month: 6, Day: 25}
	overdue := civil.Date{Year: 2025, Month: 4, Day: 26} // 45 days before reporting

	ptr := func(v float64) *float64 { return &v }

	invoice := &TransactionRecord{
		Amount:         ptr(100),
		DueDate:        &due,
		Classification: ClassificationInvoice,
		Cluster:        ClusterUnassigned,
	}
	credit := &TransactionRecord{
		Amount:         ptr(-40),
		DueDate:        &overdue,
		Classification: ClassificationCredit,
		Cluster:        ClusterUnassigned,
	}
	dueToday := &TransactionRecord{
		Amount:         ptr(80),
		DueDate:        &reporting,
		Classification: ClassificationInvoice,
		Cluster:        ClusterUnassigned,
	}
	noDueDate := &TransactionRecord{
		Amount:         ptr(55),
		Classification: ClassificationInvoice,
		Cluster:        ClusterUnassigned,
	}
	unclassified := &TransactionRecord{
		DueDate:        &due,
		Classification: ClassificationUnclassified,
		Cluster:        ClusterUnassigned,
	}

	opts := Options{ReportingDate: reporting}
	opts.fillDefaults()
	computeMaturity([]*TransactionRecord{invoice, credit, dueToday, noDueDate, unclassified}, &opts)

	if invoice.MaturityDays == nil || *invoice.MaturityDays != 15 {
		t.Errorf("invoice maturity = %v, want 15", invoice.MaturityDays)
	}
	if invoice.Cluster != ClusterNotMature {
		t.Errorf("invoice cluster = %s, want %s", invoice.Cluster, ClusterNotMature)
	}

	if credit.MaturityDays == nil || *credit.MaturityDays != -45 {
		t.Errorf("credit maturity = %v, want -45", credit.MaturityDays)
	}
	if credit.Cluster != Cluster31To60 {
		t.Errorf("credit cluster = %s, want %s", credit.Cluster, Cluster31To60)
	}

	// Due on the reporting date means not yet overdue.
	if dueToday.MaturityDays == nil || *dueToday.MaturityDays != 0 {
		t.Errorf("due-today maturity = %v, want 0", dueToday.MaturityDays)
	}
	if dueToday.Cluster != ClusterNotMature {
		t.Errorf("due-today cluster = %s, want %s", dueToday.Cluster, ClusterNotMature)
	}

	if noDueDate.MaturityDays != nil {
		t.Errorf("record without due date got maturity %d", *noDueDate.MaturityDays)
	}
	if noDueDate.Cluster != ClusterUnassigned {
		t.Errorf("record without due date cluster = %s, want %s", noDueDate.Cluster, ClusterUnassigned)
	}

	if unclassified.MaturityDays != nil {
		t.Error("unclassified record must not get a maturity")
	}
}
