package leads

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestStatsSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM leads GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("pending", int64(4)).
			AddRow("called", int64(1)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads WHERE created_at >= \$1`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM status_transitions WHERE new_status = ANY\(\$1\) AND changed_at >= \$2`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT u\.id, u\.username`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "total", "today"}).
			AddRow(int64(1), "operator1", int64(1), int64(1)))

	repo := NewStatsRepository(mock, testVocab(), time.FixedZone("x", 3*3600))
	stats, err := repo.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if stats.TotalLeads != 5 {
		t.Errorf("TotalLeads = %d, want 5", stats.TotalLeads)
	}
	if stats.ByStatus["called"] != 1 {
		t.Errorf("ByStatus[called] = %d, want 1", stats.ByStatus["called"])
	}
	if stats.ByStatus["booked"] != 0 {
		t.Errorf("vocabulary statuses with no rows must still appear, got %v", stats.ByStatus)
	}
	if stats.CreatedToday != 2 || stats.ContactedToday != 1 {
		t.Errorf("today counters = %d/%d, want 2/1", stats.CreatedToday, stats.ContactedToday)
	}
	if len(stats.Operators) != 1 || stats.Operators[0].Username != "operator1" {
		t.Errorf("unexpected operators: %+v", stats.Operators)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVocabulary(t *testing.T) {
	v := testVocab()
	if v.Initial() != "pending" {
		t.Fatalf("Initial = %q", v.Initial())
	}
	if !v.Valid("booked") || v.Valid("ARANMADI") {
		t.Fatal("vocabulary membership wrong")
	}
	contacted := v.Contacted()
	if len(contacted) != 4 || contacted[0] != "called" {
		t.Fatalf("Contacted = %v", contacted)
	}
}
